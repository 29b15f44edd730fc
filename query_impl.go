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
	"errors"
	"net/http"
	"time"
)

type queryImpl struct {
	*baseImpl
}

// Info 获取文件信息。
func (c *queryImpl) Info(ctx context.Context, fileId string) (*FileInfo, error) {
	fileId = suitFileId(fileId)
	if len(fileId) <= 0 {
		return nil, errInvalidFileId
	}

	// 发送 HTTP 请求。
	rsp, err := c.head(ctx, c.host, fileId)
	if err != nil {
		return nil, err
	}

	// 解析响应。
	info := &FileInfo{
		Size:      contentLength(rsp),
		EntityTag: rsp.Header.Get("ETag"),
		Crc64:     rsp.Header.Get("x-cos-hash-crc64ecma"),
	}
	info.UploadTime, _ = time.Parse(http.TimeFormat, rsp.Header.Get("Last-Modified"))

	return info, nil
}

// Exist 文件是否存在。
func (c *queryImpl) Exist(ctx context.Context, fileId string) (bool, error) {
	fileId = suitFileId(fileId)
	if len(fileId) <= 0 {
		return false, errInvalidFileId
	}

	_, err := c.head(ctx, c.host, fileId)
	if errors.Is(err, ErrNotExists) {
		return false, nil
	}
	return err == nil, err
}
