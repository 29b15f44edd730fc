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
	"crypto/hmac"
	"crypto/sha1"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"
)

type baseImpl struct {
	host, appKey, secretKey string
	options
}

// Ping 测试连接。
func (c *baseImpl) Ping(ctx context.Context) error {
	_, err := c.head(ctx, c.host, "ping")
	if errors.Is(err, ErrNotExists) {
		err = nil
	}
	return err
}

// GenerateAuthorization 生成 HTTP 请求的签名字符串。
func (c *baseImpl) GenerateAuthorization(fileId, method string, query url.Values, header http.Header,
	expiration time.Duration) string {

	fileId = suitFileId(fileId)

	// 生成签名有效时间 KeyTime。
	now := time.Now()
	keyTime := fmt.Sprintf("%d;%d", now.Unix(), now.Add(expiration).Unix())

	// 生成 UrlParamList、HttpParameters、HeaderList 和 HttpHeaders。
	urlParamList, httpParameters := canonicalize(query)
	headerList, httpHeaders := canonicalize(header)

	// 生成 API 密钥 SignKey。
	signKey := hmacSha1Hex([]byte(c.secretKey), keyTime)

	// 生成过程参数 HttpString 和 StringToSign。
	httpString := fmt.Sprintf("%s\n/%s\n%s\n%s\n", strings.ToLower(method), fileId, httpParameters, httpHeaders)
	httpStringSum := sha1.Sum([]byte(httpString))
	stringToSign := fmt.Sprintf("sha1\n%s\n%x\n", keyTime, httpStringSum)

	// 生成签名。
	return fmt.Sprintf(
		"q-sign-algorithm=sha1&q-ak=%s&q-sign-time=%s&q-key-time=%s&q-header-list=%s&q-url-param-list=%s&q-signature=%s",
		c.appKey, keyTime, keyTime, headerList, urlParamList, hmacSha1Hex([]byte(signKey), stringToSign))
}

// 发送 HTTP 请求。非 2xx 响应转换为 ServiceError。
func (c *baseImpl) sendHttp(ctx context.Context, req *http.Request) (*http.Response, error) {
	defer rollbackRequest(req) // 回收请求体。
	method, path := req.Method, req.URL.Path
	client := c.client
	if client == nil {
		client = http.DefaultClient
	}
	rsp, err := client.Do(req.WithContext(ctx))
	if err != nil {
		return nil, transferError(err)
	}
	if rsp == nil {
		return nil, fmt.Errorf("%w: http response object is nil", ErrService)
	}

	// 非成功的响应码就返回错误。
	if !(rsp.StatusCode >= 200 && rsp.StatusCode < 300) {
		return nil, newServiceError(rsp.StatusCode, method, path, readAndClose(rsp))
	}

	return rsp, nil
}

// 读取响应体并关闭。
func (c *baseImpl) readBody(rsp *http.Response) ([]byte, error) {
	rspBody, err := io.ReadAll(rsp.Body)
	closeRsp(rsp)
	if err != nil {
		return nil, transferError(err)
	}
	return rspBody, nil
}

// 生成 HTTP 请求体。
func (c *baseImpl) genReq(method, fileId string, query url.Values, header http.Header, content []byte) *http.Request {
	return c.newRequest(c.host, method, fileId, query, header, int64(len(content)), newBytesReader(content))
}

// 生成 HTTP 请求体。
func (c *baseImpl) genReqForReader(method, fileId string, query url.Values, header http.Header,
	contentLength int64, content io.Reader) *http.Request {

	return c.newRequest(c.host, method, fileId, query, header, contentLength, content)
}

func (c *baseImpl) newRequest(host, method, fileId string, query url.Values, header http.Header,
	contentLength int64, content io.Reader) *http.Request {

	// 生成请求头。
	if query == nil {
		query = url.Values{}
	}
	if header == nil {
		header = http.Header{}
	}
	header.Set("Host", host)
	if contentLength > 0 {
		header.Set("Content-Length", strconv.FormatInt(contentLength, 10))
	}
	header.Set("Authorization", c.GenerateAuthorization(fileId, method, query, header, AuthExpirationTime))

	// 生成 URL。
	schema := "http"
	if c.tls {
		schema = "https"
	}
	u := &url.URL{
		Scheme:   schema,
		Host:     host,
		Path:     "/" + strings.TrimLeft(fileId, "/"),
		RawQuery: query.Encode(),
	}

	// 获取请求体，并赋值。
	req := getRequest()
	req.Method = method
	req.URL = u
	req.Header = header
	req.Body = io.NopCloser(content)
	req.ContentLength = contentLength
	if contentLength <= 0 {
		req.Body = http.NoBody // 空请求体须为 NoBody 才会带 Content-Length: 0。
	}
	req.Host = host

	return req
}

// 发送 HTTP/HEAD 请求。
func (c *baseImpl) head(ctx context.Context, host, fileId string) (*http.Response, error) {
	req := c.newRequest(host, http.MethodHead, fileId, nil, nil, 0, newBytesReader(nil))
	rsp, err := c.sendHttp(ctx, req)
	closeRsp(rsp)
	return rsp, err
}

// 获取文件大小。
func (c *baseImpl) getFileSize(ctx context.Context, host, fileId string) (int64, error) {
	rsp, err := c.head(ctx, host, fileId)
	if err != nil {
		return 0, err
	}
	return contentLength(rsp), nil
}

// 获取响应的内容长度。
func contentLength(rsp *http.Response) int64 {
	length := rsp.ContentLength
	if length <= 0 {
		length, _ = strconv.ParseInt(rsp.Header.Get("Content-Length"), 10, 64)
	}
	return length
}

// 生成签名用的键列表和键值对列表，键小写并按字典序排列。
func canonicalize(values map[string][]string) (keyList, paramList string) {
	keys := make([]string, 0, len(values))
	tmp := make(map[string][]string, len(values))
	for k, v := range values {
		n := strings.ToLower(urlEncode(k))
		tmp[n] = v
		for range v {
			keys = append(keys, n)
		}
	}
	sort.Strings(keys)
	params := make([]string, 0, len(keys))
	pre := ""
	for _, v := range keys {
		if pre == v {
			continue
		}
		pre = v
		for _, m := range tmp[v] {
			params = append(params, fmt.Sprintf("%s=%s", v, urlEncode(m)))
		}
	}
	return strings.Join(keys, ";"), strings.Join(params, "&")
}

func hmacSha1Hex(key []byte, s string) string {
	hash := hmac.New(sha1.New, key)
	hash.Write([]byte(s))
	return fmt.Sprintf("%x", hash.Sum(nil))
}
