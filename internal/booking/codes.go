package booking

import (
	"context"
	"crypto/rand"
	"fmt"
)

// codeAlphabet drops characters patients misread over the phone (0/O, 1/I).
const (
	codeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"
	codeLength   = 6
	codeRetries  = 5
)

// allocateCode draws confirmation codes until one is free in the ledger.
// Called under the commit boundary, so a free code stays free until Insert.
func (s *Service) allocateCode(ctx context.Context) (string, error) {
	for attempt := 0; attempt < codeRetries; attempt++ {
		code, err := randomCode()
		if err != nil {
			return "", fmt.Errorf("booking: generate code: %w", err)
		}
		taken, err := s.ledger.HasCode(ctx, code)
		if err != nil {
			return "", fmt.Errorf("booking: check code: %w", err)
		}
		if !taken {
			return code, nil
		}
	}
	return "", ErrCodeSpaceExhausted
}

func randomCode() (string, error) {
	buf := make([]byte, codeLength)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	out := make([]byte, codeLength)
	for i, b := range buf {
		out[i] = codeAlphabet[int(b)%len(codeAlphabet)]
	}
	return string(out), nil
}
