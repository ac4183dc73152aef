package simulation

import (
	"bufio"
	"io"
	"os"
	"time"

	"github.com/goccy/go-json"

	"github.com/ajitpratap0/burgerdrop/pkg/compression"
	"github.com/ajitpratap0/burgerdrop/pkg/errors"
)

// FrameRecord is one line of the frame trace.
type FrameRecord struct {
	Frame       int           `json:"frame"`
	Now         time.Duration `json:"now"`
	FrameTime   time.Duration `json:"frame_time"`
	TickTime    time.Duration `json:"tick_time"`
	Level       string        `json:"level"`
	AverageFPS  float64       `json:"average_fps"`
	Particles   int           `json:"particles"`
	Ingredients int           `json:"ingredients"`
	Score       int           `json:"score"`
}

// traceWriter streams JSON lines through a compressor chosen by the file
// extension.
type traceWriter struct {
	file      *os.File
	pw        *io.PipeWriter
	buf       *bufio.Writer
	done      chan error
	algorithm compression.Algorithm
}

func openTrace(path string) (*traceWriter, error) {
	c, err := compression.ForPath(path)
	if err != nil {
		return nil, err
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeStorage, "failed to create trace file").
			WithDetail("path", path)
	}

	pr, pw := io.Pipe()
	t := &traceWriter{
		file:      f,
		pw:        pw,
		buf:       bufio.NewWriterSize(pw, 64<<10),
		done:      make(chan error, 1),
		algorithm: c.Algorithm(),
	}
	go func() {
		err := c.CompressStream(f, pr)
		pr.CloseWithError(err)
		t.done <- err
	}()
	return t, nil
}

func (t *traceWriter) Write(rec FrameRecord) error {
	line, err := json.Marshal(rec)
	if err != nil {
		return errors.Wrap(err, errors.ErrorTypeCodec, "failed to encode frame record")
	}
	if _, err := t.buf.Write(line); err != nil {
		return errors.Wrap(err, errors.ErrorTypeCodec, "failed to write frame record")
	}
	return t.buf.WriteByte('\n')
}

// Close flushes, waits for the compressor and returns the file size.
func (t *traceWriter) Close() (int64, error) {
	flushErr := t.buf.Flush()
	t.pw.Close()
	streamErr := <-t.done

	var size int64
	if info, err := t.file.Stat(); err == nil {
		size = info.Size()
	}
	closeErr := t.file.Close()

	switch {
	case flushErr != nil:
		return size, errors.Wrap(flushErr, errors.ErrorTypeCodec, "failed to flush trace")
	case streamErr != nil:
		return size, streamErr
	case closeErr != nil:
		return size, errors.Wrap(closeErr, errors.ErrorTypeStorage, "failed to close trace file")
	}
	return size, nil
}

// ReadTrace decodes a trace written by a simulation run.
func ReadTrace(path string) ([]FrameRecord, error) {
	c, err := compression.ForPath(path)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeStorage, "failed to open trace file").
			WithDetail("path", path)
	}
	defer f.Close()

	pr, pw := io.Pipe()
	go func() {
		pw.CloseWithError(c.DecompressStream(pw, f))
	}()
	defer pr.Close()

	var records []FrameRecord
	scanner := bufio.NewScanner(pr)
	for scanner.Scan() {
		var rec FrameRecord
		if err := json.Unmarshal(scanner.Bytes(), &rec); err != nil {
			return nil, errors.Wrap(err, errors.ErrorTypeCodec, "invalid frame record").
				WithDetail("line", len(records)+1)
		}
		records = append(records, rec)
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeCodec, "failed to read trace")
	}
	return records, nil
}
