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
	"encoding/xml"
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrNotExists 文件不存在。
	ErrNotExists = errors.New("file not found")
	// ErrInvalidArgument 参数错误，例如分片序号越界、上传 ID 与文件不匹配。重试无意义。
	ErrInvalidArgument = errors.New("invalid argument")
	// ErrInvalidState 分片上传会话已结束或尚未初始化。
	ErrInvalidState = errors.New("invalid upload session state")
	// ErrRange 拷贝分片时字节范围不合法。
	ErrRange = errors.New("invalid byte range")
	// ErrTransfer 传输数据时发生 I/O 错误。可用相同分片序号重新上传。
	ErrTransfer = errors.New("transfer failed")
	// ErrService 服务端返回失败。
	ErrService = errors.New("service error")
	// ErrIncompletePartSet 合并分片时分片缺失或 ETag 不一致。
	ErrIncompletePartSet = errors.New("incomplete part set")

	errInvalidFileId = fmt.Errorf("%w: fileId is invalid", ErrInvalidArgument)
)

// ServiceError 服务端返回的错误。可用 errors.Is 判断其类别。
type ServiceError struct {
	// StatusCode HTTP 响应码。
	StatusCode int
	// Code 服务端错误码，例如 NoSuchUpload。
	Code string
	// Message 服务端错误信息，原样保留。
	Message string
	// RequestId 请求 ID。
	RequestId string
	Method    string
	Path      string

	kind error
}

func (e *ServiceError) Error() string {
	return fmt.Sprintf("status code is %d, code is %s, message is %s, method is %s, reqPath is %s, requestId is %s",
		e.StatusCode, e.Code, e.Message, e.Method, e.Path, e.RequestId)
}

func (e *ServiceError) Unwrap() []error {
	if e.kind == nil {
		return []error{ErrService}
	}
	return []error{ErrService, e.kind}
}

// 解析服务端错误响应体。
func newServiceError(statusCode int, method, path string, rspBody []byte) *ServiceError {
	var body struct {
		XMLName   xml.Name `xml:"Error"`
		Code      string
		Message   string
		RequestId string
	}
	e := &ServiceError{StatusCode: statusCode, Method: method, Path: path}
	if err := xml.Unmarshal(rspBody, &body); err == nil {
		e.Code = body.Code
		e.Message = body.Message
		e.RequestId = body.RequestId
	} else {
		e.Message = string(rspBody)
	}
	e.kind = classifyServiceError(statusCode, e.Code)
	return e
}

// 响应码为 200 时，响应体也可能是错误信息。
func embeddedServiceError(method, path string, rspBody []byte) error {
	var probe struct {
		XMLName xml.Name
	}
	if xml.Unmarshal(rspBody, &probe) != nil || probe.XMLName.Local != "Error" {
		return nil
	}
	return newServiceError(http.StatusOK, method, path, rspBody)
}

func classifyServiceError(statusCode int, code string) error {
	switch code {
	case "NoSuchUpload":
		return ErrInvalidState
	case "InvalidRange":
		return ErrRange
	case "InvalidPart", "InvalidPartOrder":
		return ErrIncompletePartSet
	case "NoSuchKey":
		return ErrNotExists
	}
	switch statusCode {
	case http.StatusRequestedRangeNotSatisfiable:
		return ErrRange
	case http.StatusNotFound:
		if len(code) <= 0 {
			return ErrNotExists
		}
	}
	return nil
}

// 包装传输错误，保留原始错误链。
func transferError(err error) error {
	if err == nil || errors.Is(err, ErrTransfer) {
		return err
	}
	return fmt.Errorf("%w: %w", ErrTransfer, err)
}
