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

type Downloader interface {
	// Download 下载文件。较大的文件按分片范围并发下载。
	//
	// 注意：调用方负责关闭 rc。
	Download(ctx context.Context, fileId string) (rc io.ReadCloser, fileSize int64, err error)

	// DownloadToWriter 下载文件。
	DownloadToWriter(ctx context.Context, fileId string, w io.Writer) error

	// DownloadToWriterAt 下载文件。
	DownloadToWriterAt(ctx context.Context, fileId string, wa io.WriterAt) error

	// DownloadRange 下载文件的字节范围。
	DownloadRange(ctx context.Context, fileId string, byteRange ByteRange, w io.Writer) error
}
