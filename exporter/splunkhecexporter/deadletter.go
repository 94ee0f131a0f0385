// Copyright The hecbridge Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//       http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package splunkhecexporter

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/tidwall/wal"
)

var errDeadLetterClosed = errors.New("dead letter log is closed")

// deadLetterLog keeps undelivered request bodies in a write-ahead log, one
// entry per batch.
type deadLetterLog struct {
	mu      sync.Mutex // mu protects the fields below.
	log     *wal.Log
	path    string
	options *wal.Options
}

func openDeadLetterLog(cfg DeadLetterSettings) (*deadLetterLog, error) {
	cacheSize := cfg.SegmentCacheSize
	if cacheSize <= 0 {
		cacheSize = defaultSegmentCacheSize
	}
	dl := &deadLetterLog{
		path: filepath.Join(cfg.Directory, "hec_dead_letter"),
		options: &wal.Options{
			SegmentCacheSize: cacheSize,
			NoCopy:           true,
		},
	}
	if err := dl.open(); err != nil {
		return nil, err
	}
	return dl, nil
}

func (dl *deadLetterLog) open() error {
	log, err := wal.Open(dl.path, dl.options)
	if err != nil {
		return fmt.Errorf("failed to open dead letter log: %w", err)
	}
	dl.log = log
	return nil
}

// persist appends body at the tail of the log.
func (dl *deadLetterLog) persist(body string) error {
	dl.mu.Lock()
	defer dl.mu.Unlock()
	if dl.log == nil {
		return errDeadLetterClosed
	}
	last, err := dl.log.LastIndex()
	if err != nil {
		return err
	}
	return dl.log.Write(last+1, []byte(body))
}

// len returns the number of entries waiting for replay.
func (dl *deadLetterLog) len() (int, error) {
	dl.mu.Lock()
	defer dl.mu.Unlock()
	if dl.log == nil {
		return 0, errDeadLetterClosed
	}
	first, last, err := dl.indices()
	if err != nil || last == 0 {
		return 0, err
	}
	return int(last - first + 1), nil
}

func (dl *deadLetterLog) indices() (first, last uint64, err error) {
	if first, err = dl.log.FirstIndex(); err != nil {
		return 0, 0, err
	}
	if last, err = dl.log.LastIndex(); err != nil {
		return 0, 0, err
	}
	return first, last, nil
}

// replay hands every entry to send, oldest first. Delivered entries are
// truncated from the front; the first failing entry and everything after it
// stay in the log.
func (dl *deadLetterLog) replay(ctx context.Context, send func(ctx context.Context, body string) error) (int, error) {
	dl.mu.Lock()
	defer dl.mu.Unlock()
	if dl.log == nil {
		return 0, errDeadLetterClosed
	}

	first, last, err := dl.indices()
	if err != nil || last == 0 {
		return 0, err
	}

	sent := 0
	for index := first; index <= last; index++ {
		data, err := dl.log.Read(index)
		if err == nil {
			err = ctx.Err()
		}
		if err == nil {
			err = send(ctx, string(data))
		}
		if err != nil {
			if index > first {
				if tErr := dl.log.TruncateFront(index); tErr != nil && tErr != wal.ErrOutOfRange {
					return sent, tErr
				}
			}
			return sent, err
		}
		sent++
	}
	return sent, dl.reset()
}

// reset drops the whole log. The log cannot be truncated to zero entries, so
// it is removed and reopened empty.
func (dl *deadLetterLog) reset() error {
	if err := dl.log.Close(); err != nil {
		return err
	}
	dl.log = nil
	if err := os.RemoveAll(dl.path); err != nil {
		return err
	}
	return dl.open()
}

func (dl *deadLetterLog) close() error {
	dl.mu.Lock()
	defer dl.mu.Unlock()
	if dl.log == nil {
		return nil
	}
	err := dl.log.Close()
	dl.log = nil
	return err
}
