package api

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/dutchcoders/go-clamd"
)

var ErrMalicious = errors.New("malicious file detected")

// Scanner 在处理上传内容前做病毒扫描。
type Scanner interface {
	Scan(content []byte) error
}

// ClamdScanner 通过 clamd 的 INSTREAM 扫描内容。
type ClamdScanner struct {
	address string
}

// NewScanner 地址为空时返回 nil，调用方据此跳过扫描。
func NewScanner(address string) Scanner {
	if address == "" {
		return nil
	}
	return &ClamdScanner{address: address}
}

func (s *ClamdScanner) Scan(content []byte) error {
	client := clamd.NewClamd(s.address)

	abortChan := make(chan bool)
	defer close(abortChan)

	scanChan, err := client.ScanStream(bytes.NewReader(content), abortChan)
	if err != nil {
		return fmt.Errorf("scan stream: %w", err)
	}

	for result := range scanChan {
		switch result.Status {
		case clamd.RES_OK:
		case clamd.RES_FOUND:
			return fmt.Errorf("%w: %s", ErrMalicious, result.Description)
		default:
			return fmt.Errorf("scan stream: %s %s", result.Status, result.Description)
		}
	}
	return nil
}
