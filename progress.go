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
	"io"
	"sync"
)

// ProgressFunc 上传进度回调，在传输数据的协程中同步调用。
//
// consumed 已传输字节数，每次调用严格递增；total 本次传输总字节数；toConsume 下一次将传输的字节数。
// 总满足 consumed + toConsume <= total，最后一次调用时 consumed == total。
type ProgressFunc func(consumed, total, toConsume int64)

// 统计读取进度的读取流，最多读取 total 个字节。
type progressReader struct {
	mu       sync.Mutex
	r        io.Reader
	fn       ProgressFunc
	consumed int64
	total    int64
	reported bool
}

func newProgressReader(r io.Reader, total int64, fn ProgressFunc) *progressReader {
	return &progressReader{r: r, fn: fn, total: total}
}

func (p *progressReader) Read(b []byte) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	remain := p.total - p.consumed
	if remain <= 0 {
		return 0, io.EOF
	}
	if int64(len(b)) > remain {
		b = b[:remain]
	}
	if !p.reported {
		p.report(int64(len(b)))
	}
	n, err := p.r.Read(b)
	if n > 0 {
		p.consumed += int64(n)
		p.report(int64(len(b)))
	}
	return n, err
}

// 数据读完但从未回调过（空分片），补一次回调。
func (p *progressReader) finish() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.reported && p.consumed == p.total {
		p.report(0)
	}
}

func (p *progressReader) report(next int64) {
	p.reported = true
	if p.fn != nil {
		p.fn(p.consumed, p.total, min(next, p.total-p.consumed))
	}
}
