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

package cos_test

import (
	"context"
	"errors"
	"net/http"
	"sync/atomic"
	"testing"

	cos "gitee.com/ivfzhou/tencent-cos-multipart"
)

func TestDelete(t *testing.T) {
	t.Run("正常运行", func(t *testing.T) {
		f := NewFakeCOS(t)
		f.Put("k1", []byte("data"))
		client := f.Client()
		if err := client.Delete(context.Background(), "k1"); err != nil {
			t.Fatalf("unexpected error: want nil, got %v", err)
		}
		if _, ok := f.Get("k1"); ok {
			t.Errorf("unexpected object: want none")
		}
		if err := client.Delete(context.Background(), "k1"); err != nil {
			t.Errorf("unexpected error: want nil, got %v", err)
		}
		if closeCount := atomic.LoadInt32(&CloseCount); closeCount != 0 {
			t.Errorf("expected close count: want 0, got %v", closeCount)
		}
	})

	t.Run("响应失败", func(t *testing.T) {
		f := NewFakeCOS(t)
		f.Hook = func(req *http.Request) (*http.Response, error) {
			return ErrorResponse(http.StatusForbidden, "AccessDenied", "Access Denied."), nil
		}
		if err := f.Client().Delete(context.Background(), "k1"); !errors.Is(err, cos.ErrService) {
			t.Errorf("unexpected error: want %v, got %v", cos.ErrService, err)
		}
	})

	t.Run("文件 ID 非法", func(t *testing.T) {
		f := NewFakeCOS(t)
		if err := f.Client().Delete(context.Background(), "/"); !errors.Is(err, cos.ErrInvalidArgument) {
			t.Errorf("unexpected error: want %v, got %v", cos.ErrInvalidArgument, err)
		}
	})
}
