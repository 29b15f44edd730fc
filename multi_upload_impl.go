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
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strconv"
)

type multiUploadImpl struct {
	*baseImpl
}

// InitMultiUpload 初始化分片上传区域。
func (c *multiUploadImpl) InitMultiUpload(ctx context.Context, fileId string) (UploadId, error) {
	fileId = suitFileId(fileId)
	if len(fileId) <= 0 {
		return UploadId{}, errInvalidFileId
	}

	// 生成请求体。
	query := url.Values{}
	query.Set("uploads", "")
	req := c.genReq(http.MethodPost, fileId, query, nil, nil)

	// 发送 HTTP 请求。
	rsp, err := c.sendHttp(ctx, req)
	if err != nil {
		return UploadId{}, err
	}
	rspBody, err := c.readBody(rsp)
	if err != nil {
		return UploadId{}, err
	}

	// 解析响应体。
	var rspData struct {
		XMLName  xml.Name `xml:"InitiateMultipartUploadResult"`
		UploadId string
	}
	if err = xml.Unmarshal(rspBody, &rspData); err != nil {
		return UploadId{}, fmt.Errorf("%w: %w: %s", ErrService, err, rspBody)
	}
	if len(rspData.UploadId) <= 0 {
		return UploadId{}, fmt.Errorf("%w: no upload id returned for %s", ErrService, fileId)
	}

	return UploadId{fileId: fileId, id: rspData.UploadId}, nil
}

// UploadPart 上传分片。
func (c *multiUploadImpl) UploadPart(ctx context.Context, fileId string, uploadId UploadId, partNumber int,
	reqBody []byte, progress ProgressFunc) (PartInfo, error) {

	return c.UploadPartByReader(ctx, fileId, uploadId, partNumber, int64(len(reqBody)), newBytesReader(reqBody),
		progress)
}

// UploadPartByReader 从读取流上传分片。
func (c *multiUploadImpl) UploadPartByReader(ctx context.Context, fileId string, uploadId UploadId, partNumber int,
	contentLength int64, r io.Reader, progress ProgressFunc) (PartInfo, error) {

	fileId = suitFileId(fileId)
	if err := checkPartTarget(fileId, uploadId, partNumber); err != nil {
		return PartInfo{}, err
	}
	if contentLength < 0 {
		return PartInfo{}, fmt.Errorf("%w: content length %d is negative", ErrInvalidArgument, contentLength)
	}

	// 生成请求体。
	pr := newProgressReader(r, contentLength, progress)
	query := url.Values{}
	query.Set("uploadId", uploadId.String())
	query.Set("partNumber", strconv.Itoa(partNumber))
	req := c.genReqForReader(http.MethodPut, fileId, query, nil, contentLength, pr)

	// 发送 HTTP 请求。
	rsp, err := c.sendHttp(ctx, req)
	if err != nil {
		return PartInfo{}, err
	}
	closeRsp(rsp)
	etag := rsp.Header.Get("ETag")
	if len(etag) <= 0 {
		return PartInfo{}, fmt.Errorf("%w: no etag returned for part %d of %s", ErrService, partNumber, fileId)
	}
	pr.finish()

	return PartInfo{PartNumber: partNumber, ETag: etag}, nil
}

// UploadPartCopy 拷贝源文件的字节范围作为分片。
func (c *multiUploadImpl) UploadPartCopy(ctx context.Context, srcBucket, srcFileId string, byteRange ByteRange,
	fileId string, uploadId UploadId, partNumber int) (PartInfo, error) {

	fileId = suitFileId(fileId)
	if err := checkPartTarget(fileId, uploadId, partNumber); err != nil {
		return PartInfo{}, err
	}
	srcFileId = suitFileId(srcFileId)
	if len(srcFileId) <= 0 {
		return PartInfo{}, fmt.Errorf("%w: source fileId is invalid", ErrInvalidArgument)
	}
	if len(srcBucket) <= 0 {
		srcBucket = c.host
	}

	// 服务端只接受闭区间，开放范围需要先获取源文件大小。
	if byteRange.IsOpen() {
		size, err := c.getFileSize(ctx, srcBucket, srcFileId)
		if err != nil {
			return PartInfo{}, err
		}
		if byteRange, err = byteRange.resolve(size); err != nil {
			return PartInfo{}, err
		}
	}

	// 生成请求体。
	query := url.Values{}
	query.Set("uploadId", uploadId.String())
	query.Set("partNumber", strconv.Itoa(partNumber))
	header := http.Header{}
	header.Set("x-cos-copy-source", srcBucket+(&url.URL{Path: "/" + srcFileId}).EscapedPath())
	header.Set("x-cos-copy-source-range", byteRange.String())
	req := c.genReq(http.MethodPut, fileId, query, header, nil)

	// 发送 HTTP 请求。
	rsp, err := c.sendHttp(ctx, req)
	if err != nil {
		return PartInfo{}, err
	}
	rspBody, err := c.readBody(rsp)
	if err != nil {
		return PartInfo{}, err
	}
	if err = embeddedServiceError(http.MethodPut, "/"+fileId, rspBody); err != nil {
		return PartInfo{}, err
	}

	// 解析响应体。
	var rspData struct {
		XMLName      xml.Name `xml:"CopyPartResult"`
		ETag         string
		LastModified string
	}
	if err = xml.Unmarshal(rspBody, &rspData); err != nil {
		return PartInfo{}, fmt.Errorf("%w: %w: %s", ErrService, err, rspBody)
	}
	if len(rspData.ETag) <= 0 {
		return PartInfo{}, fmt.Errorf("%w: no etag returned for copied part %d of %s", ErrService, partNumber, fileId)
	}

	return PartInfo{PartNumber: partNumber, ETag: rspData.ETag}, nil
}

// ListFileParts 获取已上传的分片信息。
func (c *multiUploadImpl) ListFileParts(ctx context.Context, fileId string, uploadId UploadId) (
	[]*FilePartInfo, error) {

	fileId = suitFileId(fileId)
	if len(fileId) <= 0 {
		return nil, errInvalidFileId
	}
	if err := uploadId.checkFile(fileId); err != nil {
		return nil, err
	}

	parts := make([]*FilePartInfo, 0, MultiThreshold)
	next := ""
	for {
		// 生成请求体。
		query := url.Values{}
		query.Set("uploadId", uploadId.String())
		if len(next) > 0 {
			query.Set("part-number-marker", next)
		}
		req := c.genReq(http.MethodGet, fileId, query, nil, nil)

		// 发送请求。
		rsp, err := c.sendHttp(ctx, req)
		if err != nil {
			return nil, err
		}
		rspBody, err := c.readBody(rsp)
		if err != nil {
			return nil, err
		}

		// 解析响应体。
		var rspData struct {
			ListPartResultParts []struct {
				PartNumber int
				ETag       string
				Size       int64
			} `xml:"Part"`
			NextPartNumberMarker string
			IsTruncated          string
		}
		if err = xml.Unmarshal(rspBody, &rspData); err != nil {
			return nil, fmt.Errorf("%w: %w: %s", ErrService, err, rspBody)
		}

		// 组装分片信息。
		for _, v := range rspData.ListPartResultParts {
			parts = append(parts, &FilePartInfo{
				PartNumber: v.PartNumber,
				EntityTag:  v.ETag,
				Size:       v.Size,
			})
		}

		// 没有更多分片或标记不再前进就跳出循环。
		prev := next
		next = rspData.NextPartNumberMarker
		truncated := len(next) > 0
		if len(rspData.IsTruncated) > 0 {
			truncated, _ = strconv.ParseBool(rspData.IsTruncated)
		}
		if !truncated || len(next) <= 0 || next == prev {
			break
		}
	}

	// 分片信息排序。
	sort.Slice(parts, func(i, j int) bool { return parts[i].PartNumber < parts[j].PartNumber })

	return parts, nil
}

// CompleteMultiUpload 按序号升序提交分片，结束分片上传。
func (c *multiUploadImpl) CompleteMultiUpload(ctx context.Context, fileId string, uploadId UploadId,
	parts []PartInfo) error {

	fileId = suitFileId(fileId)
	if len(fileId) <= 0 {
		return errInvalidFileId
	}
	if err := uploadId.checkFile(fileId); err != nil {
		return err
	}
	sorted, err := sortParts(parts)
	if err != nil {
		return err
	}

	// 生成请求体。
	type Part struct {
		PartNumber int
		ETag       string
	}
	type CompleteMultipartUpload struct {
		Parts []Part `xml:"Part"`
	}
	var reqObj CompleteMultipartUpload
	reqObj.Parts = make([]Part, len(sorted))
	for i, v := range sorted {
		reqObj.Parts[i] = Part{PartNumber: v.PartNumber, ETag: v.ETag}
	}
	reqBody, _ := xml.Marshal(reqObj)

	// 发送 HTTP 请求。
	query := url.Values{}
	query.Set("uploadId", uploadId.String())
	rsp, err := c.sendHttp(ctx, c.genReq(http.MethodPost, fileId, query, nil, reqBody))
	if err != nil {
		return err
	}
	rspBody, err := c.readBody(rsp)
	if err != nil {
		return err
	}

	return embeddedServiceError(http.MethodPost, "/"+fileId, rspBody)
}

// AbortMultiUpload 丢弃上传的分片。
func (c *multiUploadImpl) AbortMultiUpload(ctx context.Context, fileId string, uploadId UploadId) error {
	fileId = suitFileId(fileId)
	if len(fileId) <= 0 {
		return errInvalidFileId
	}
	if err := uploadId.checkFile(fileId); err != nil {
		return err
	}

	// 发送 HTTP 请求。
	query := url.Values{}
	query.Set("uploadId", uploadId.String())
	req := c.genReq(http.MethodDelete, fileId, query, nil, nil)

	rsp, err := c.sendHttp(ctx, req)
	if err != nil {
		return err
	}
	closeRsp(rsp)

	return nil
}

// NewSession 创建未初始化的分片上传会话。
func (c *multiUploadImpl) NewSession(fileId string) *Session {
	return newSession(c, suitFileId(fileId))
}

// ResumeSession 根据服务端已上传的分片恢复会话。
func (c *multiUploadImpl) ResumeSession(ctx context.Context, uploadId UploadId) (*Session, error) {
	if uploadId.IsZero() {
		return nil, fmt.Errorf("%w: upload id is empty", ErrInvalidArgument)
	}
	parts, err := c.ListFileParts(ctx, uploadId.FileId(), uploadId)
	if err != nil {
		return nil, err
	}
	s := newSession(c, uploadId.FileId())
	s.state = StateInitiated
	s.uploadId = uploadId
	for _, v := range parts {
		s.parts[v.PartNumber] = v.PartInfo()
	}
	return s, nil
}

// 校验分片上传的目标。
func checkPartTarget(fileId string, uploadId UploadId, partNumber int) error {
	if len(fileId) <= 0 {
		return errInvalidFileId
	}
	if err := uploadId.checkFile(fileId); err != nil {
		return err
	}
	return checkPartNumber(partNumber)
}
