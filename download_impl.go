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
	"context"
	"fmt"
	"io"
	"net/http"

	gu "gitee.com/ivfzhou/goroutine-util"
	iu "gitee.com/ivfzhou/io-util"
)

type downloadImpl struct {
	*baseImpl
}

// Download 下载文件。
//
// 注意：调用方负责关闭 rc。
func (c *downloadImpl) Download(ctx context.Context, fileId string) (rc io.ReadCloser, size int64, err error) {
	fileId = suitFileId(fileId)
	if len(fileId) <= 0 {
		return nil, 0, errInvalidFileId
	}

	// 获取文件信息。
	if size, err = c.getFileSize(ctx, c.host, fileId); err != nil {
		return nil, 0, err
	}

	rc, err = c.open(ctx, fileId, size)
	return
}

// DownloadToWriter 下载文件。
func (c *downloadImpl) DownloadToWriter(ctx context.Context, fileId string, w io.Writer) error {
	rc, _, err := c.Download(ctx, fileId)
	if err != nil {
		return err
	}
	defer closeIO(rc)

	if _, err = io.Copy(w, rc); err != nil {
		return transferError(err)
	}
	return nil
}

// DownloadToWriterAt 下载文件。
func (c *downloadImpl) DownloadToWriterAt(ctx context.Context, fileId string, wa io.WriterAt) error {
	fileId = suitFileId(fileId)
	if len(fileId) <= 0 {
		return errInvalidFileId
	}

	// 获取文件信息。
	fileSize, err := c.getFileSize(ctx, c.host, fileId)
	if err != nil {
		return err
	}

	// 是否使用分片模式下载。
	if useMultipart(fileSize) {
		return c.downloadToWriterAt(ctx, fileId, fileSize, wa)
	}

	rc, err := c.download(ctx, fileId, nil)
	if err != nil {
		return err
	}
	defer closeIO(rc)
	if _, err = iu.CopyReaderToWriterAt(rc, wa, 0, false); err != nil {
		return transferError(err)
	}
	return nil
}

// DownloadRange 下载文件的字节范围。
func (c *downloadImpl) DownloadRange(ctx context.Context, fileId string, byteRange ByteRange, w io.Writer) error {
	fileId = suitFileId(fileId)
	if len(fileId) <= 0 {
		return errInvalidFileId
	}
	header := http.Header{}
	header.Set("Range", byteRange.String())
	rc, err := c.download(ctx, fileId, header)
	if err != nil {
		return err
	}
	defer closeIO(rc)

	if _, err = io.Copy(w, rc); err != nil {
		return transferError(err)
	}
	return nil
}

// 打开文件读取流，大文件使用分片模式下载。
func (c *downloadImpl) open(ctx context.Context, fileId string, size int64) (io.ReadCloser, error) {
	if useMultipart(size) {
		return c.multiDownloadToReader(ctx, fileId, size)
	}
	return c.download(ctx, fileId, nil)
}

// 下载文件，并从读取流中读出。
func (c *downloadImpl) download(ctx context.Context, fileId string, header http.Header) (io.ReadCloser, error) {
	req := c.genReq(http.MethodGet, fileId, nil, header, nil)
	rsp, err := c.sendHttp(ctx, req)
	if err != nil {
		return nil, err
	}
	return rsp.Body, nil
}

// 按分片范围并发下载文件到写入流。
func (c *downloadImpl) downloadToWriterAt(ctx context.Context, fileId string, fileSize int64,
	wa io.WriterAt) error {

	run, wait := gu.NewRunner(ctx, NumRoutines, func(ctx context.Context, r *ByteRange) error {
		return c.downloadPartToWriterAt(ctx, fileId, *r, wa, false)
	})

	var err error
	for _, r := range splitRanges(fileSize, getPartSize()) {
		if err = run(&r, false); err != nil {
			break
		}
	}
	if e := wait(true); e != nil {
		_ = wait(false) // 等待所有协程退出。
		if err == nil {
			err = e
		}
	}
	return err
}

// 下载文件，并从读取流中读出。
func (c *downloadImpl) multiDownloadToReader(ctx context.Context, fileId string, fileSize int64) (
	io.ReadCloser, error) {

	var (
		wc iu.WriteAtCloser
		rc io.ReadCloser
	)
	if c.nonUseDisk {
		var rc2 iu.ReadCloser
		wc, rc2 = iu.NewWriteAtToReader2()
		rc = iu.ToReader(rc2)
	} else {
		wc, rc = iu.NewWriteAtToReader()
	}

	run, wait := gu.NewRunner(ctx, NumRoutines, func(ctx context.Context, r *ByteRange) error {
		return c.downloadPartToWriterAt(ctx, fileId, *r, wc, c.nonUseDisk)
	})

	// 并发下载数据。
	go func() {
		for _, r := range splitRanges(fileSize, getPartSize()) {
			if err := run(&r, false); err != nil {
				logError(wc.CloseByError(err), "close download stream failed")
				return
			}
		}
		logError(wc.CloseByError(wait(true)), "close download stream failed")
	}()

	return rc, nil
}

// 下载分片字节数据到写入流。
func (c *downloadImpl) downloadPartToWriterAt(ctx context.Context, fileId string, r ByteRange, wa io.WriterAt,
	nonBuffer bool) error {

	header := http.Header{}
	header.Set("Range", r.String())
	rc, err := c.download(ctx, fileId, header)
	if err != nil {
		return err
	}
	defer closeIO(rc)
	n, err := iu.CopyReaderToWriterAt(rc, wa, r.Start(), nonBuffer)
	if err != nil {
		return transferError(err)
	}
	if n != r.Len() {
		return fmt.Errorf("%w: part size not match, actual is %v, expected is %v, range is %v",
			ErrTransfer, n, r.Len(), r)
	}

	return nil
}

// 把 [0, size) 按 partSize 切分为闭区间。
func splitRanges(size, partSize int64) []ByteRange {
	ranges := make([]ByteRange, 0, (size+partSize-1)/partSize)
	for offset := int64(0); offset < size; offset += partSize {
		ranges = append(ranges, ByteRange{start: offset, end: min(offset+partSize, size) - 1, closed: true})
	}
	return ranges
}
