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
	"io"
)

type MultiUploader interface {
	// InitMultiUpload 初始化分片上传区域。
	InitMultiUpload(ctx context.Context, fileId string) (UploadId, error)

	// UploadPart 上传分片。progress 可为 nil。
	UploadPart(ctx context.Context, fileId string, uploadId UploadId, partNumber int, reqBody []byte,
		progress ProgressFunc) (PartInfo, error)

	// UploadPartByReader 从读取流上传分片。progress 可为 nil。
	UploadPartByReader(ctx context.Context, fileId string, uploadId UploadId, partNumber int, contentLength int64,
		r io.Reader, progress ProgressFunc) (PartInfo, error)

	// UploadPartCopy 拷贝源文件的字节范围作为分片，数据不经过客户端。
	//
	// srcBucket 为源存储桶域名，为空表示与客户端相同的存储桶。
	UploadPartCopy(ctx context.Context, srcBucket, srcFileId string, byteRange ByteRange, fileId string,
		uploadId UploadId, partNumber int) (PartInfo, error)

	// ListFileParts 获取已上传的分片信息。
	ListFileParts(ctx context.Context, fileId string, uploadId UploadId) ([]*FilePartInfo, error)

	// CompleteMultiUpload 按序号升序提交分片，结束分片上传。
	CompleteMultiUpload(ctx context.Context, fileId string, uploadId UploadId, parts []PartInfo) error

	// AbortMultiUpload 丢弃上传的分片。
	AbortMultiUpload(ctx context.Context, fileId string, uploadId UploadId) error

	// NewSession 创建未初始化的分片上传会话。
	NewSession(fileId string) *Session

	// ResumeSession 根据服务端已上传的分片恢复会话。
	ResumeSession(ctx context.Context, uploadId UploadId) (*Session, error)
}
