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
	"fmt"
	"sort"
	"strconv"
)

const (
	// MinPartNumber 分片序号下限。
	MinPartNumber = 1
	// MaxPartNumber 分片序号上限。
	MaxPartNumber = 10000
)

// PartInfo 已上传分片的序号与 ETag。
type PartInfo struct {
	// PartNumber 序号，从 1 开始。
	PartNumber int
	// ETag 服务端为分片生成的内容标签。
	ETag string
}

// FilePartInfo 文件分片信息。
type FilePartInfo struct {
	// PartNumber 序号。
	PartNumber int
	// EntityTag 对象被创建时标识对象内容的信息标签。
	EntityTag string
	// Size 分片大小。
	Size int64
}

// PartInfo 转换为合并分片时使用的分片信息。
func (p *FilePartInfo) PartInfo() PartInfo {
	return PartInfo{PartNumber: p.PartNumber, ETag: p.EntityTag}
}

// UploadId 分片上传 ID。与初始化时的文件绑定，不能用于其它文件。
type UploadId struct {
	fileId string
	id     string
}

// NewUploadId 用已持久化的上传 ID 重建 UploadId。
func NewUploadId(fileId, id string) UploadId {
	return UploadId{fileId: suitFileId(fileId), id: id}
}

// String 服务端下发的原始上传 ID。
func (u UploadId) String() string {
	return u.id
}

// FileId 上传 ID 所属的文件。
func (u UploadId) FileId() string {
	return u.fileId
}

// IsZero 是否为空值。
func (u UploadId) IsZero() bool {
	return len(u.id) <= 0
}

// 校验上传 ID 属于该文件。
func (u UploadId) checkFile(fileId string) error {
	if u.IsZero() {
		return fmt.Errorf("%w: upload id is empty", ErrInvalidArgument)
	}
	if u.fileId != fileId {
		return fmt.Errorf("%w: upload id %s belongs to %q, not %q", ErrInvalidArgument, u.id, u.fileId, fileId)
	}
	return nil
}

// ByteRange 字节范围，首尾都包含在内。零值表示整个源文件。
type ByteRange struct {
	start  int64
	end    int64
	closed bool
}

// NewByteRange 创建 [start, end] 范围。
func NewByteRange(start, end int64) (ByteRange, error) {
	if start < 0 {
		return ByteRange{}, fmt.Errorf("%w: start %d is negative", ErrRange, start)
	}
	if end < start {
		return ByteRange{}, fmt.Errorf("%w: end %d is less than start %d", ErrRange, end, start)
	}
	return ByteRange{start: start, end: end, closed: true}, nil
}

// ByteRangeFrom 创建从 start 到源文件末尾的范围。
func ByteRangeFrom(start int64) (ByteRange, error) {
	if start < 0 {
		return ByteRange{}, fmt.Errorf("%w: start %d is negative", ErrRange, start)
	}
	return ByteRange{start: start}, nil
}

// Start 起始偏移。
func (r ByteRange) Start() int64 {
	return r.start
}

// End 结束偏移。ok 为 false 表示直到源文件末尾。
func (r ByteRange) End() (end int64, ok bool) {
	return r.end, r.closed
}

// IsOpen 是否直到源文件末尾。
func (r ByteRange) IsOpen() bool {
	return !r.closed
}

// Len 范围内的字节数。开放范围返回 -1。
func (r ByteRange) Len() int64 {
	if !r.closed {
		return -1
	}
	return r.end - r.start + 1
}

func (r ByteRange) String() string {
	if !r.closed {
		return "bytes=" + strconv.FormatInt(r.start, 10) + "-"
	}
	return "bytes=" + strconv.FormatInt(r.start, 10) + "-" + strconv.FormatInt(r.end, 10)
}

// 根据源文件大小补全范围。
func (r ByteRange) resolve(size int64) (ByteRange, error) {
	if r.start >= size {
		return ByteRange{}, fmt.Errorf("%w: start %d is beyond source size %d", ErrRange, r.start, size)
	}
	if r.closed {
		return r, nil
	}
	return ByteRange{start: r.start, end: size - 1, closed: true}, nil
}

func checkPartNumber(partNumber int) error {
	if partNumber < MinPartNumber || partNumber > MaxPartNumber {
		return fmt.Errorf("%w: part number %d is out of [%d, %d]",
			ErrInvalidArgument, partNumber, MinPartNumber, MaxPartNumber)
	}
	return nil
}

// 复制并按序号升序排列分片，序号重复或越界则报错。
func sortParts(parts []PartInfo) ([]PartInfo, error) {
	if len(parts) <= 0 {
		return nil, fmt.Errorf("%w: no part to complete", ErrIncompletePartSet)
	}
	sorted := make([]PartInfo, len(parts))
	copy(sorted, parts)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].PartNumber < sorted[j].PartNumber })
	for i, v := range sorted {
		if err := checkPartNumber(v.PartNumber); err != nil {
			return nil, err
		}
		if len(v.ETag) <= 0 {
			return nil, fmt.Errorf("%w: part %d has no etag", ErrInvalidArgument, v.PartNumber)
		}
		if i > 0 && sorted[i-1].PartNumber == v.PartNumber {
			return nil, fmt.Errorf("%w: part %d is duplicated", ErrInvalidArgument, v.PartNumber)
		}
	}
	return sorted, nil
}
