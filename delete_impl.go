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
)

type deleteImpl struct {
	*baseImpl
}

// Delete 删除文件。
func (c *deleteImpl) Delete(ctx context.Context, fileId string) error {
	fileId = suitFileId(fileId)
	if len(fileId) <= 0 {
		return errInvalidFileId
	}

	req := c.genReq(http.MethodDelete, fileId, nil, nil, nil)
	rsp, err := c.sendHttp(ctx, req)
	if errors.Is(err, ErrNotExists) {
		return nil
	}
	if err != nil {
		return err
	}
	closeRsp(rsp)

	return nil
}
