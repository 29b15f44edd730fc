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
	"bytes"
	"context"
	"crypto/md5"
	crand "crypto/rand"
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"sort"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	gu "gitee.com/ivfzhou/goroutine-util"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	cos "gitee.com/ivfzhou/tencent-cos-multipart"
)

const (
	host       = "bucket-appId.cos.region.myqcloud.com"
	otherHost  = "other-appId.cos.region.myqcloud.com"
	appKey     = "app_key"
	appSecret  = "app_secret"
	actualTest = false
)

var CloseCount int32

type mockTransport struct {
	fn func(*http.Request) (*http.Response, error)
}

type ctxCancelWithError struct {
	context.Context
	err gu.AtomicError
}

type readCloser struct {
	closeErr  error
	readErr   error
	closeFlag int32
	data      []byte
	readCount int
	total     int
}

// FakeCOS 内存中的 COS 服务。
type FakeCOS struct {
	t *testing.T

	lock     sync.Mutex
	objects  map[string][]byte
	uploads  map[string]*fakeUpload
	requests map[string]int

	// Hook 返回非空响应或错误时，直接作为本次请求的结果。
	Hook func(req *http.Request) (*http.Response, error)
	// MaxParts 列举分片时每页的数量。
	MaxParts int
}

type fakeUpload struct {
	key   string
	parts map[int]fakePart
}

type fakePart struct {
	data []byte
	etag string
}

func TestMain(m *testing.M) {
	cos.PartSize = 1024 * 1024
	cos.MultiThreshold = 2
	cos.NumRoutines = 3
	cos.Logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).Level(zerolog.WarnLevel)
	os.Exit(m.Run())
}

func NewFakeCOS(t *testing.T) *FakeCOS {
	atomic.StoreInt32(&CloseCount, 0)
	return &FakeCOS{
		t:        t,
		objects:  make(map[string][]byte),
		uploads:  make(map[string]*fakeUpload),
		requests: make(map[string]int),
		MaxParts: 2,
	}
}

func (f *FakeCOS) Client(opts ...func(*http.Client)) cos.Api {
	client := MockHttpClient(f.Serve)
	for _, v := range opts {
		v(client)
	}
	return cos.NewClient(host, appKey, appSecret, cos.WithHttpClient(client))
}

func (f *FakeCOS) Put(key string, data []byte) {
	f.lock.Lock()
	defer f.lock.Unlock()
	f.objects[host+"/"+strings.TrimLeft(key, "/")] = data
}

func (f *FakeCOS) PutOn(bucket, key string, data []byte) {
	f.lock.Lock()
	defer f.lock.Unlock()
	f.objects[bucket+"/"+strings.TrimLeft(key, "/")] = data
}

func (f *FakeCOS) Get(key string) ([]byte, bool) {
	f.lock.Lock()
	defer f.lock.Unlock()
	data, ok := f.objects[host+"/"+strings.TrimLeft(key, "/")]
	return data, ok
}

// Requests 某类请求的次数，例如 "part"、"copy"、"complete"、"abort"。
func (f *FakeCOS) Requests(op string) int {
	f.lock.Lock()
	defer f.lock.Unlock()
	return f.requests[op]
}

// Uploads 未结束的分片上传数量。
func (f *FakeCOS) Uploads() int {
	f.lock.Lock()
	defer f.lock.Unlock()
	return len(f.uploads)
}

// PartETag 服务端记录的分片 ETag。
func (f *FakeCOS) PartETag(uploadId string, partNumber int) string {
	f.lock.Lock()
	defer f.lock.Unlock()
	upload := f.uploads[uploadId]
	if upload == nil {
		return ""
	}
	return upload.parts[partNumber].etag
}

func (f *FakeCOS) Serve(req *http.Request) (*http.Response, error) {
	auth := req.Header.Get("Authorization")
	if !CheckAuthorization(auth, req.URL.Path, req.Method, req.Header, req.URL.Query()) {
		f.t.Errorf("unexpected auth: got %v", auth)
	}
	if req.Host != host && req.Host != otherHost {
		f.t.Errorf("unexpected host: want %v, got %v", host, req.Host)
	}
	if f.Hook != nil {
		if rsp, err := f.Hook(req); rsp != nil || err != nil {
			return rsp, err
		}
	}

	var body []byte
	if req.Body != nil {
		var err error
		if body, err = io.ReadAll(req.Body); err != nil {
			return nil, err
		}
		if int64(len(body)) != req.ContentLength {
			f.t.Errorf("unexpected content length: want %v, got %v", req.ContentLength, len(body))
		}
	}

	f.lock.Lock()
	defer f.lock.Unlock()
	query := req.URL.Query()
	key := req.Host + req.URL.Path
	switch {
	case req.Method == http.MethodPost && query.Has("uploads"):
		f.requests["init"]++
		uploadId := uuid.NewString()
		f.uploads[uploadId] = &fakeUpload{key: key, parts: make(map[int]fakePart)}
		return XMLResponse(http.StatusOK, fmt.Sprintf(
			"<InitiateMultipartUploadResult><Key>%s</Key><UploadId>%s</UploadId></InitiateMultipartUploadResult>",
			req.URL.Path, uploadId)), nil
	case query.Has("uploadId"):
		upload := f.uploads[query.Get("uploadId")]
		if upload == nil || upload.key != key {
			return ErrorResponse(http.StatusNotFound, "NoSuchUpload", "The specified upload does not exist."), nil
		}
		switch req.Method {
		case http.MethodPut:
			return f.putPart(req, upload, body), nil
		case http.MethodPost:
			f.requests["complete"]++
			return f.complete(query.Get("uploadId"), upload, body), nil
		case http.MethodDelete:
			f.requests["abort"]++
			delete(f.uploads, query.Get("uploadId"))
			return XMLResponse(http.StatusNoContent, ""), nil
		case http.MethodGet:
			f.requests["list"]++
			return f.listParts(upload, query.Get("part-number-marker")), nil
		}
	case req.Method == http.MethodPut:
		f.requests["put"]++
		f.objects[key] = body
		return &http.Response{
			StatusCode: http.StatusOK,
			Header:     http.Header{"Etag": []string{ETag(body)}},
			Body:       NewReader(nil, nil, nil),
		}, nil
	case req.Method == http.MethodHead:
		f.requests["head"]++
		data, ok := f.objects[key]
		if !ok {
			return &http.Response{StatusCode: http.StatusNotFound, Body: NewReader(nil, nil, nil)}, nil
		}
		return &http.Response{
			StatusCode:    http.StatusOK,
			ContentLength: int64(len(data)),
			Header: http.Header{
				"Etag":          []string{ETag(data)},
				"Last-Modified": []string{time.Now().UTC().Format(http.TimeFormat)},
			},
			Body: NewReader(nil, nil, nil),
		}, nil
	case req.Method == http.MethodGet:
		f.requests["get"]++
		data, ok := f.objects[key]
		if !ok {
			return ErrorResponse(http.StatusNotFound, "NoSuchKey", "The specified key does not exist."), nil
		}
		status := http.StatusOK
		if v := req.Header.Get("Range"); len(v) > 0 {
			start, end, ok := ParseRange(v, int64(len(data)))
			if !ok {
				return ErrorResponse(http.StatusRequestedRangeNotSatisfiable, "InvalidRange",
					"The requested range is not satisfiable"), nil
			}
			data = data[start : end+1]
			status = http.StatusPartialContent
		}
		return &http.Response{
			StatusCode:    status,
			ContentLength: int64(len(data)),
			Body:          NewReader(data, nil, nil),
		}, nil
	case req.Method == http.MethodDelete:
		f.requests["delete"]++
		if _, ok := f.objects[key]; !ok {
			return ErrorResponse(http.StatusNotFound, "NoSuchKey", "The specified key does not exist."), nil
		}
		delete(f.objects, key)
		return XMLResponse(http.StatusNoContent, ""), nil
	}

	f.t.Errorf("unexpected request: %v %v", req.Method, req.URL)
	return ErrorResponse(http.StatusMethodNotAllowed, "MethodNotAllowed", req.Method), nil
}

func (f *FakeCOS) putPart(req *http.Request, upload *fakeUpload, body []byte) *http.Response {
	partNumber, err := strconv.Atoi(req.URL.Query().Get("partNumber"))
	if err != nil || partNumber < 1 || partNumber > 10000 {
		return ErrorResponse(http.StatusBadRequest, "InvalidArgument", "Part number must be an integer between 1 and 10000")
	}

	source := req.Header.Get("x-cos-copy-source")
	if len(source) <= 0 {
		f.requests["part"]++
		etag := ETag(body)
		upload.parts[partNumber] = fakePart{data: body, etag: etag}
		return &http.Response{
			StatusCode: http.StatusOK,
			Header:     http.Header{"Etag": []string{etag}},
			Body:       NewReader(nil, nil, nil),
		}
	}

	f.requests["copy"]++
	index := strings.Index(source, "/")
	if index <= 0 {
		return ErrorResponse(http.StatusBadRequest, "InvalidArgument", "invalid copy source "+source)
	}
	path, err := url.PathUnescape(source[index:])
	if err != nil {
		return ErrorResponse(http.StatusBadRequest, "InvalidArgument", "invalid copy source "+source)
	}
	data, ok := f.objects[source[:index]+path]
	if !ok {
		return ErrorResponse(http.StatusNotFound, "NoSuchKey", "The specified key does not exist.")
	}
	start, end, ok := ParseRange(req.Header.Get("x-cos-copy-source-range"), int64(len(data)))
	if !ok {
		return ErrorResponse(http.StatusRequestedRangeNotSatisfiable, "InvalidRange",
			"The requested range is not satisfiable")
	}
	part := bytes.Clone(data[start : end+1])
	etag := ETag(part)
	upload.parts[partNumber] = fakePart{data: part, etag: etag}
	return XMLResponse(http.StatusOK, fmt.Sprintf(
		"<CopyPartResult><ETag>%s</ETag><LastModified>%s</LastModified></CopyPartResult>",
		etag, time.Now().UTC().Format(time.RFC3339)))
}

func (f *FakeCOS) complete(uploadId string, upload *fakeUpload, body []byte) *http.Response {
	var reqObj struct {
		Parts []struct {
			PartNumber int
			ETag       string
		} `xml:"Part"`
	}
	if err := xml.Unmarshal(body, &reqObj); err != nil || len(reqObj.Parts) <= 0 {
		return ErrorResponse(http.StatusBadRequest, "MalformedXML", "The XML you provided was not well-formed")
	}
	var content []byte
	sums := md5.New()
	for i, v := range reqObj.Parts {
		if i > 0 && reqObj.Parts[i-1].PartNumber >= v.PartNumber {
			return ErrorResponse(http.StatusBadRequest, "InvalidPartOrder", "The list of parts was not in ascending order.")
		}
		part, ok := upload.parts[v.PartNumber]
		if !ok || part.etag != v.ETag {
			return ErrorResponse(http.StatusBadRequest, "InvalidPart",
				fmt.Sprintf("One or more of the specified parts could not be found: %d", v.PartNumber))
		}
		content = append(content, part.data...)
		sum := md5.Sum(part.data)
		sums.Write(sum[:])
	}
	etag := fmt.Sprintf("\"%x-%d\"", sums.Sum(nil), len(reqObj.Parts))
	f.objects[upload.key] = content
	delete(f.uploads, uploadId)
	return XMLResponse(http.StatusOK, fmt.Sprintf(
		"<CompleteMultipartUploadResult><Key>%s</Key><ETag>%s</ETag></CompleteMultipartUploadResult>",
		upload.key, etag))
}

func (f *FakeCOS) listParts(upload *fakeUpload, marker string) *http.Response {
	after, _ := strconv.Atoi(marker)
	numbers := make([]int, 0, len(upload.parts))
	for k := range upload.parts {
		if k > after {
			numbers = append(numbers, k)
		}
	}
	sort.Ints(numbers)
	truncated := len(numbers) > f.MaxParts
	if truncated {
		numbers = numbers[:f.MaxParts]
	}
	var b strings.Builder
	b.WriteString("<ListPartsResult>")
	for _, v := range numbers {
		part := upload.parts[v]
		_, _ = fmt.Fprintf(&b, "<Part><PartNumber>%d</PartNumber><ETag>%s</ETag><Size>%d</Size></Part>",
			v, part.etag, len(part.data))
	}
	if len(numbers) > 0 {
		_, _ = fmt.Fprintf(&b, "<NextPartNumberMarker>%d</NextPartNumberMarker>", numbers[len(numbers)-1])
	}
	_, _ = fmt.Fprintf(&b, "<IsTruncated>%v</IsTruncated></ListPartsResult>", truncated)
	return XMLResponse(http.StatusOK, b.String())
}

func ETag(data []byte) string {
	return fmt.Sprintf("\"%x\"", md5.Sum(data))
}

// ParseRange 解析 bytes=start-end，end 越界时截断到文件末尾。
func ParseRange(v string, size int64) (start, end int64, ok bool) {
	v, found := strings.CutPrefix(v, "bytes=")
	if !found {
		return 0, 0, false
	}
	first, last, found := strings.Cut(v, "-")
	if !found {
		return 0, 0, false
	}
	start, err := strconv.ParseInt(first, 10, 64)
	if err != nil || start >= size {
		return 0, 0, false
	}
	end = size - 1
	if len(last) > 0 {
		if end, err = strconv.ParseInt(last, 10, 64); err != nil || end < start {
			return 0, 0, false
		}
		end = min(end, size-1)
	}
	return start, end, true
}

func XMLResponse(status int, body string) *http.Response {
	return &http.Response{
		StatusCode: status,
		Header:     http.Header{"Content-Type": []string{"application/xml"}},
		Body:       NewReader([]byte(body), nil, nil),
	}
}

func ErrorResponse(status int, code, message string) *http.Response {
	return XMLResponse(status, fmt.Sprintf(
		"<Error><Code>%s</Code><Message>%s</Message><RequestId>%s</RequestId></Error>",
		code, message, uuid.NewString()))
}

func NewReader(data []byte, closeErr, readErr error) io.ReadCloser {
	atomic.AddInt32(&CloseCount, 1)
	return &readCloser{
		closeErr: closeErr,
		readErr:  readErr,
		data:     data,
		total:    len(data),
	}
}

func NewCtxCancelWithError() (context.Context, context.CancelCauseFunc) {
	ctx, cancel := context.WithCancel(context.Background())
	c := &ctxCancelWithError{Context: ctx}
	return c, func(cause error) {
		c.err.Set(cause)
		cancel()
	}
}

func MakeBytesWithSize(n int) []byte {
	data := make([]byte, n)
	n, err := crand.Read(data)
	if err != nil || n != len(data) {
		panic("rand.Read fail")
	}
	return data
}

func UrlEncode(s string) string {
	var b bytes.Buffer
	for i := 0; i < len(s); i++ {
		ch := s[i]
		if 'a' <= ch && ch <= 'z' || 'A' <= ch && ch <= 'Z' || '0' <= ch && ch <= '9' ||
			ch == '-' || ch == '_' || ch == '.' || ch == '~' {
			b.WriteByte(ch)
			continue
		}
		_, _ = fmt.Fprintf(&b, "%%%02X", ch)
	}
	return b.String()
}

func MockHttpClient(fn func(*http.Request) (*http.Response, error)) *http.Client {
	return &http.Client{
		Transport: &mockTransport{
			fn: fn,
		},
	}
}

func (m *mockTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	return m.fn(req)
}

func (rc *readCloser) Read(p []byte) (int, error) {
	if len(rc.data) <= 0 {
		if rc.readErr != nil {
			return 0, rc.readErr
		}
		return 0, io.EOF
	}
	if rc.readErr != nil && rc.readCount >= rc.total/2 {
		rc.data = nil
		return 0, rc.readErr
	}
	n := copy(p, rc.data)
	rc.data = rc.data[n:]
	rc.readCount += n
	return n, nil
}

func (rc *readCloser) Close() error {
	if atomic.CompareAndSwapInt32(&rc.closeFlag, 0, 1) {
		atomic.AddInt32(&CloseCount, -1)
		return rc.closeErr
	}
	return fmt.Errorf("reader already closed")
}

func (c *ctxCancelWithError) Err() error {
	return c.err.Get()
}
