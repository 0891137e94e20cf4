package uploader

import (
	"fmt"
	"io"
	"os"
	"sync"
)

// progressReader wraps the upload body and renders an advisory transfer
// counter. The transfer manager may read parts from multiple workers, so
// the aggregated total is guarded by one mutex. Output is never used for
// control flow.
type progressReader struct {
	file       *os.File
	size       int64
	remotePath string
	out        io.Writer

	mu   sync.Mutex
	seen int64
}

func newProgressReader(file *os.File, size int64, remotePath string, out io.Writer) *progressReader {
	if out == nil {
		out = io.Discard
	}
	return &progressReader{
		file:       file,
		size:       size,
		remotePath: remotePath,
		out:        out,
	}
}

func (p *progressReader) Read(b []byte) (int, error) {
	n, err := p.file.Read(b)
	p.add(n)
	return n, err
}

func (p *progressReader) ReadAt(b []byte, off int64) (int, error) {
	n, err := p.file.ReadAt(b, off)
	p.add(n)
	return n, err
}

func (p *progressReader) Seek(offset int64, whence int) (int64, error) {
	return p.file.Seek(offset, whence)
}

func (p *progressReader) add(n int) {
	if n <= 0 {
		return
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	p.seen += int64(n)
	percentage := float64(100)
	if p.size > 0 {
		percentage = float64(p.seen) / float64(p.size) * 100
	}
	fmt.Fprintf(p.out, "\rUploading to %s  %d / %d  (%.2f%%)", p.remotePath, p.seen, p.size, percentage)
}
