package journal

import (
	"compress/gzip"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"scenario-advisor/internal/types"
)

// FileSink mirrors news checks and trade results to daily JSON-lines files
// under dir/news and dir/trades so they can be inspected after the process exits.
type FileSink struct {
	mu  sync.Mutex
	dir string
	now func() time.Time
}

// TradeEntry is the line written for each order outcome.
type TradeEntry struct {
	Time     string            `json:"time"`
	Symbol   string            `json:"symbol"`
	Quantity string            `json:"quantity"`
	Result   types.TradeResult `json:"result"`
}

func NewFileSink(dir string) *FileSink {
	return &FileSink{dir: dir, now: time.Now}
}

func (s *FileSink) dailyFilepath(kind string, t time.Time) string {
	return filepath.Join(s.dir, kind, t.Format("2006-01-02")+".txt")
}

func (s *FileSink) AppendNews(e types.NewsLogEntry) error {
	return s.appendLine("news", e)
}

func (s *FileSink) AppendTrade(symbol, quantity string, res types.TradeResult) error {
	return s.appendLine("trades", TradeEntry{
		Time:     s.now().Format("2006-01-02 15:04:05"),
		Symbol:   symbol,
		Quantity: quantity,
		Result:   res,
	})
}

func (s *FileSink) appendLine(kind string, v any) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	p := s.dailyFilepath(kind, s.now())
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return err
	}
	f, err := os.OpenFile(p, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(f, string(b))
	return err
}

// CompressOlder gzips mirror files older than retentionDays and removes the originals.
func (s *FileSink) CompressOlder(retentionDays int) error {
	if retentionDays <= 0 {
		return nil
	}
	cutoff := s.now().AddDate(0, 0, -retentionDays)
	return filepath.WalkDir(s.dir, func(p string, d os.DirEntry, err error) error {
		if err != nil || d.IsDir() || filepath.Ext(p) != ".txt" {
			return nil
		}
		info, err := d.Info()
		if err != nil || !info.ModTime().Before(cutoff) {
			return nil
		}
		gz := p + ".gz"
		if _, err := os.Stat(gz); err == nil {
			_ = os.Remove(p)
			return nil
		}
		if err := gzipFile(p, gz); err == nil {
			_ = os.Remove(p)
		}
		return nil
	})
}

func gzipFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	gw := gzip.NewWriter(out)
	_, copyErr := io.Copy(gw, in)
	closeErr := gw.Close()
	fileErr := out.Close()
	if copyErr != nil {
		_ = os.Remove(dst)
		return copyErr
	}
	if closeErr != nil {
		return closeErr
	}
	return fileErr
}
