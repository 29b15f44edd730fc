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

type Uploader interface {
	// Upload 上传文件。文件较大时自动使用分片上传。
	Upload(ctx context.Context, fileId string, content []byte) error

	// UploadFromReader 上传文件。按分片大小切分读取流并发上传，出错时丢弃已上传的分片。
	UploadFromReader(ctx context.Context, fileId string, r io.Reader) error

	// UploadFromReaderWithSize 上传文件。读取流的数据量须为 contentLength。
	UploadFromReaderWithSize(ctx context.Context, fileId string, contentLength int64, r io.Reader) error

	// CopyObject 在服务端通过分片拷贝复制整个文件。
	//
	// srcBucket 为源存储桶域名，为空表示与客户端相同的存储桶。
	CopyObject(ctx context.Context, srcBucket, srcFileId, fileId string) error

	MultiUploader
}
