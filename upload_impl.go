/*
 * Copyright (c) 2025 ivfzhou
 * tencent-cos-multipart is licensed under Mulan PSL v2.
 * You can use this software according to the terms and conditions of the Mulan PSL v2.
 * You may obtain a copy of Mulan PSL v2 at:
 *          http://license.coscl.org.cn/MulanPSL2
 * THIS SOFTWARE IS PROVIDED ON AN "AS IS" BASIS, WITHOUT WARRANTIES OF ANY KIND,
 * EITHER EXPRESS OR IMPLIED, INCLUDING BUT NOT LIMITED TO NON-INFRINGEMENT,
 * MERCHANTABILITY OR FIT FOR A PARTICULAR PURPOSE.
 * See the Mulan PSL v2 for more details.
 */

package cos

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"

	gu "gitee.com/ivfzhou/goroutine-util"
	"github.com/dustin/go-humanize"
)

type uploadImpl struct {
	*baseImpl
	MultiUploader
}

// Upload 上传文件。
func (c *uploadImpl) Upload(ctx context.Context, fileId string, reqBody []byte) error {
	fileId = suitFileId(fileId)
	if len(fileId) <= 0 {
		return errInvalidFileId
	}

	// 是否启用分片模式上传。
	size := int64(len(reqBody))
	if useMultipart(size) {
		return c.multiUpload(ctx, fileId, size, bytes.NewReader(reqBody))
	}

	return c.upload(ctx, fileId, size, newBytesReader(reqBody))
}

// UploadFromReader 上传文件。
func (c *uploadImpl) UploadFromReader(ctx context.Context, fileId string, r io.Reader) error {
	fileId = suitFileId(fileId)
	if len(fileId) <= 0 {
		return errInvalidFileId
	}

	// 先读出一个分片，不足一个分片就直接上传。
	buf := makeBytes()
	defer rollbackBytes(buf)
	n, err := io.ReadFull(r, buf)
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return c.upload(ctx, fileId, int64(n), newBytesReader(buf[:n]))
	}
	if err != nil {
		return transferError(err)
	}

	return c.multiUpload(ctx, fileId, -1, io.MultiReader(bytes.NewReader(buf), r))
}

// UploadFromReaderWithSize 上传文件。
func (c *uploadImpl) UploadFromReaderWithSize(ctx context.Context, fileId string, contentLength int64,
	r io.Reader) error {

	fileId = suitFileId(fileId)
	if len(fileId) <= 0 {
		return errInvalidFileId
	}
	if contentLength < 0 {
		return fmt.Errorf("%w: content length %d is negative", ErrInvalidArgument, contentLength)
	}

	// 是否启用分片模式上传。
	if useMultipart(contentLength) {
		return c.multiUpload(ctx, fileId, contentLength, r)
	}

	return c.upload(ctx, fileId, contentLength, r)
}

// CopyObject 在服务端通过分片拷贝复制整个文件。
func (c *uploadImpl) CopyObject(ctx context.Context, srcBucket, srcFileId, fileId string) error {
	fileId = suitFileId(fileId)
	srcFileId = suitFileId(srcFileId)
	if len(fileId) <= 0 || len(srcFileId) <= 0 {
		return errInvalidFileId
	}
	host := srcBucket
	if len(host) <= 0 {
		host = c.host
	}

	// 获取源文件大小。空文件无法按范围拷贝，直接创建空文件。
	size, err := c.getFileSize(ctx, host, srcFileId)
	if err != nil {
		return err
	}
	if size <= 0 {
		return c.upload(ctx, fileId, 0, newBytesReader(nil))
	}

	session := c.NewSession(fileId)
	if _, err = session.Initiate(ctx); err != nil {
		return err
	}

	type data struct {
		byteRange ByteRange
		num       int
	}
	run, wait := gu.NewRunner(ctx, NumRoutines, func(ctx context.Context, t *data) error {
		_, err := session.UploadPartCopy(ctx, srcBucket, srcFileId, t.byteRange, t.num)
		return err
	})

	// 并发拷贝分片。
	for i, byteRange := range splitRanges(size, getPartSize()) {
		if err = run(&data{byteRange, i + 1}, false); err != nil {
			break
		}
	}

	if err = finishSession(ctx, session, err, wait); err == nil {
		Logger.Info().Str("source", srcFileId).Str("fileId", fileId).Str("size", humanize.IBytes(uint64(size))).
			Msg("object copied")
	}
	return err
}

// 上传文件。
func (c *uploadImpl) upload(ctx context.Context, fileId string, contentLength int64, r io.Reader) error {
	req := c.genReqForReader(http.MethodPut, fileId, nil, nil, contentLength, io.LimitReader(r, contentLength))
	rsp, err := c.sendHttp(ctx, req)
	if err != nil {
		return err
	}
	closeRsp(rsp)
	return nil
}

// 从读取流中读取数据并发分片上传。contentLength 为 -1 表示读到流结束。
func (c *uploadImpl) multiUpload(ctx context.Context, fileId string, contentLength int64, r io.Reader) error {
	session := c.NewSession(fileId)
	if _, err := session.Initiate(ctx); err != nil {
		return err
	}

	ctx, cancel := context.WithCancelCause(ctx)
	defer cancel(nil)
	type data struct {
		buf []byte
		num int
	}
	run, wait := gu.NewRunner(ctx, NumRoutines, func(ctx context.Context, t *data) error {
		defer rollbackBytes(t.buf)
		_, err := session.UploadPart(ctx, t.num, t.buf, nil)
		return err
	})

	// 并发上传分片。
	var err error
	remain := contentLength
	for num, last := 1, false; !last; num++ {
		var buf []byte
		if buf, last, err = readPart(r, remain); err != nil {
			break
		}
		if len(buf) <= 0 && num > 1 {
			rollbackBytes(buf)
			break
		}
		if remain > 0 {
			remain -= int64(len(buf))
		}
		if err = run(&data{buf, num}, false); err != nil {
			break
		}
	}
	if err != nil {
		cancel(err)
	}

	return finishSession(ctx, session, err, wait)
}

// 读取一个分片的数据。remain 为 -1 表示不限长度，last 为 true 表示数据已读完。
func readPart(r io.Reader, remain int64) (buf []byte, last bool, err error) {
	buf = makeBytes()
	if remain >= 0 && remain < int64(len(buf)) {
		buf = buf[:remain]
	}
	n, err := io.ReadFull(r, buf)
	buf = buf[:n]
	switch {
	case err == nil:
		return buf, remain == int64(n), nil
	case errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF):
		if remain >= 0 {
			rollbackBytes(buf)
			return nil, true, fmt.Errorf("%w: stream ended %d bytes early", ErrTransfer, remain-int64(n))
		}
		return buf, true, nil
	default:
		rollbackBytes(buf)
		return nil, true, transferError(err)
	}
}

// 等待分片任务结束，成功则合并分片，失败则丢弃已上传的分片。
func finishSession(ctx context.Context, session *Session, err error, wait func(bool) error) error {
	if e := wait(true); e != nil {
		_ = wait(false) // 等待所有协程退出。
		if err == nil {
			err = e
		}
	}
	if err == nil {
		err = session.Complete(ctx)
	}
	if err != nil {
		logError(session.Abort(context.WithoutCancel(ctx)), "abort multipart upload failed")
	}
	return err
}
