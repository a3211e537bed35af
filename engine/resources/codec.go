package resources

import (
	"bufio"
	"bytes"
	"compress/gzip"
	"encoding/gob"
	"io"
	"os"

	"github.com/h2non/filetype"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

/** @brief On-disk encoding of a resource category. */
type Encoding int

const (
	/** @brief gzip compressed binary serialization. */
	EncodingCompressed Encoding = iota
	/** @brief Human readable structured text. */
	EncodingReadable
	/** @brief The payload is written verbatim, used for source text such as shaders. */
	EncodingRaw
)

func (e Encoding) String() string {
	switch e {
	case EncodingCompressed:
		return "compressed"
	case EncodingReadable:
		return "readable"
	case EncodingRaw:
		return "raw"
	}
	return "unknown"
}

// header bytes needed by the magic sniffer
const sniffLength = 262

// IsCompressedFile sniffs the magic header of path for a gzip stream.
func IsCompressedFile(path string) (bool, error) {
	f, err := os.Open(path)
	if err != nil {
		return false, errors.Wrapf(err, "failed to open %s", path)
	}
	defer f.Close()

	head := make([]byte, sniffLength)
	n, err := io.ReadFull(f, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return false, errors.Wrapf(err, "failed to read %s", path)
	}
	return filetype.Is(head[:n], "gz"), nil
}

// WriteData serializes data to path using encoding.
func WriteData(path string, encoding Encoding, data any) error {
	var buf bytes.Buffer
	switch encoding {
	case EncodingCompressed:
		zw := gzip.NewWriter(&buf)
		if err := gob.NewEncoder(zw).Encode(data); err != nil {
			return errors.Wrapf(err, "failed to encode %T", data)
		}
		if err := zw.Close(); err != nil {
			return errors.Wrap(err, "failed to flush compressed stream")
		}
	case EncodingReadable:
		enc := yaml.NewEncoder(&buf)
		enc.SetIndent(2)
		if err := enc.Encode(data); err != nil {
			return errors.Wrapf(err, "failed to encode %T", data)
		}
		if err := enc.Close(); err != nil {
			return errors.Wrap(err, "failed to flush readable stream")
		}
	case EncodingRaw:
		switch v := data.(type) {
		case string:
			buf.WriteString(v)
		case []byte:
			buf.Write(v)
		default:
			return errors.Errorf("raw encoding cannot write %T", data)
		}
	default:
		return errors.Errorf("unknown encoding %d", encoding)
	}

	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return errors.Wrapf(err, "failed to write %s", path)
	}
	return nil
}

// ReadData decodes path into out. Compressed files are recognised by their
// magic header, everything else is treated as text: raw when out is a
// *string or *[]byte, structured otherwise.
func ReadData(path string, out any) error {
	compressed, err := IsCompressedFile(path)
	if err != nil {
		return err
	}

	f, err := os.Open(path)
	if err != nil {
		return errors.Wrapf(err, "failed to open %s", path)
	}
	defer f.Close()

	if compressed {
		zr, err := gzip.NewReader(bufio.NewReader(f))
		if err != nil {
			return errors.Wrapf(err, "failed to open compressed stream %s", path)
		}
		defer zr.Close()
		if err := gob.NewDecoder(zr).Decode(out); err != nil {
			return errors.Wrapf(err, "failed to decode %s", path)
		}
		return nil
	}

	content, err := io.ReadAll(f)
	if err != nil {
		return errors.Wrapf(err, "failed to read %s", path)
	}
	switch v := out.(type) {
	case *string:
		*v = string(content)
	case *[]byte:
		*v = content
	default:
		if err := yaml.Unmarshal(content, out); err != nil {
			return errors.Wrapf(err, "failed to decode %s", path)
		}
	}
	return nil
}
