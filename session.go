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
	"fmt"
	"io"
	"sort"
	"sync"

	"github.com/dustin/go-humanize"
)

// SessionState 分片上传会话状态。
type SessionState int32

const (
	// StateUninitiated 尚未向服务端申请上传 ID。
	StateUninitiated SessionState = iota
	// StateInitiated 已申请上传 ID，可上传分片。
	StateInitiated
	// StateCompleted 已合并分片。终态。
	StateCompleted
	// StateAborted 已丢弃分片。终态。
	StateAborted
)

func (s SessionState) String() string {
	switch s {
	case StateUninitiated:
		return "uninitiated"
	case StateInitiated:
		return "initiated"
	case StateCompleted:
		return "completed"
	case StateAborted:
		return "aborted"
	}
	return fmt.Sprintf("SessionState(%d)", int32(s))
}

// IsTerminal 是否为终态。
func (s SessionState) IsTerminal() bool {
	return s == StateCompleted || s == StateAborted
}

func (s SessionState) initiate() (SessionState, error) {
	if s != StateUninitiated {
		return s, fmt.Errorf("%w: cannot initiate a session that is %s", ErrInvalidState, s)
	}
	return StateInitiated, nil
}

func (s SessionState) complete() (SessionState, error) {
	if s != StateInitiated {
		return s, fmt.Errorf("%w: cannot complete a session that is %s", ErrInvalidState, s)
	}
	return StateCompleted, nil
}

func (s SessionState) abort() (SessionState, error) {
	if s != StateInitiated {
		return s, fmt.Errorf("%w: cannot abort a session that is %s", ErrInvalidState, s)
	}
	return StateAborted, nil
}

func (s SessionState) checkActive() error {
	if s != StateInitiated {
		return fmt.Errorf("%w: session is %s", ErrInvalidState, s)
	}
	return nil
}

// Session 一次分片上传的生命周期。
//
// 不同序号的分片可并发上传；Initiate、Complete、Abort 会等待进行中的分片上传结束。
type Session struct {
	engine MultiUploader
	fileId string

	// 状态变更持有写锁，分片上传期间持有读锁。
	mu       sync.RWMutex
	state    SessionState
	uploadId UploadId

	partsLock sync.Mutex
	parts     map[int]PartInfo
}

func newSession(engine MultiUploader, fileId string) *Session {
	return &Session{engine: engine, fileId: fileId, parts: make(map[int]PartInfo)}
}

// Initiate 向服务端申请上传 ID。
func (s *Session) Initiate(ctx context.Context) (UploadId, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	next, err := s.state.initiate()
	if err != nil {
		return UploadId{}, err
	}
	uploadId, err := s.engine.InitMultiUpload(ctx, s.fileId)
	if err != nil {
		return UploadId{}, err
	}
	s.uploadId = uploadId
	s.state = next
	Logger.Debug().Str("fileId", s.fileId).Str("uploadId", uploadId.String()).Msg("multipart session initiated")
	return uploadId, nil
}

// RecordPart 记录分片，相同序号覆盖旧值。
func (s *Session) RecordPart(partNumber int, etag string) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.state.checkActive(); err != nil {
		return err
	}
	if err := checkPartNumber(partNumber); err != nil {
		return err
	}
	if len(etag) <= 0 {
		return fmt.Errorf("%w: part %d has no etag", ErrInvalidArgument, partNumber)
	}
	s.putPart(PartInfo{PartNumber: partNumber, ETag: etag})
	return nil
}

// UploadPart 上传分片并记录。
func (s *Session) UploadPart(ctx context.Context, partNumber int, content []byte, progress ProgressFunc) (
	PartInfo, error) {

	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.state.checkActive(); err != nil {
		return PartInfo{}, err
	}
	part, err := s.engine.UploadPart(ctx, s.fileId, s.uploadId, partNumber, content, progress)
	if err != nil {
		return PartInfo{}, err
	}
	s.putPart(part)
	Logger.Debug().Str("fileId", s.fileId).Int("partNumber", partNumber).
		Str("size", humanize.IBytes(uint64(len(content)))).Msg("part uploaded")
	return part, nil
}

// UploadPartByReader 从读取流上传分片并记录。
func (s *Session) UploadPartByReader(ctx context.Context, partNumber int, contentLength int64, r io.Reader,
	progress ProgressFunc) (PartInfo, error) {

	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.state.checkActive(); err != nil {
		return PartInfo{}, err
	}
	part, err := s.engine.UploadPartByReader(ctx, s.fileId, s.uploadId, partNumber, contentLength, r, progress)
	if err != nil {
		return PartInfo{}, err
	}
	s.putPart(part)
	return part, nil
}

// UploadPartCopy 从源文件拷贝字节范围作为分片并记录。
func (s *Session) UploadPartCopy(ctx context.Context, srcBucket, srcFileId string, byteRange ByteRange,
	partNumber int) (PartInfo, error) {

	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.state.checkActive(); err != nil {
		return PartInfo{}, err
	}
	part, err := s.engine.UploadPartCopy(ctx, srcBucket, srcFileId, byteRange, s.fileId, s.uploadId, partNumber)
	if err != nil {
		return PartInfo{}, err
	}
	s.putPart(part)
	Logger.Debug().Str("fileId", s.fileId).Int("partNumber", partNumber).Str("source", srcFileId).
		Stringer("range", byteRange).Msg("part copied")
	return part, nil
}

// Complete 按序号升序提交已记录的分片，合并为文件。
func (s *Session) Complete(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	next, err := s.state.complete()
	if err != nil {
		return err
	}
	parts := s.sortedParts()
	if len(parts) <= 0 {
		return fmt.Errorf("%w: no part recorded for %s", ErrIncompletePartSet, s.fileId)
	}
	if err = s.engine.CompleteMultiUpload(ctx, s.fileId, s.uploadId, parts); err != nil {
		return err
	}
	s.state = next
	Logger.Debug().Str("fileId", s.fileId).Int("parts", len(parts)).Msg("multipart session completed")
	return nil
}

// Abort 丢弃已上传的分片。会话结束后再调用返回 ErrInvalidState。
//
// 服务端已丢弃该上传时同样返回 ErrInvalidState，会话进入 StateAborted。
func (s *Session) Abort(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	next, err := s.state.abort()
	if err != nil {
		return err
	}
	if err = s.engine.AbortMultiUpload(ctx, s.fileId, s.uploadId); err != nil {
		// 服务端已不存在该上传，会话也随之结束。
		if errors.Is(err, ErrInvalidState) {
			s.state = next
		}
		return err
	}
	s.state = next
	Logger.Debug().Str("fileId", s.fileId).Str("uploadId", s.uploadId.String()).Msg("multipart session aborted")
	return nil
}

// Parts 已记录的分片，按序号升序。
func (s *Session) Parts() []PartInfo {
	return s.sortedParts()
}

// State 当前状态。
func (s *Session) State() SessionState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// FileId 目标文件。
func (s *Session) FileId() string {
	return s.fileId
}

// UploadId 上传 ID，未初始化时为空值。
func (s *Session) UploadId() UploadId {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.uploadId
}

func (s *Session) putPart(part PartInfo) {
	s.partsLock.Lock()
	defer s.partsLock.Unlock()
	s.parts[part.PartNumber] = part
}

func (s *Session) sortedParts() []PartInfo {
	s.partsLock.Lock()
	defer s.partsLock.Unlock()
	parts := make([]PartInfo, 0, len(s.parts))
	for _, v := range s.parts {
		parts = append(parts, v)
	}
	sort.Slice(parts, func(i, j int) bool { return parts[i].PartNumber < parts[j].PartNumber })
	return parts
}
