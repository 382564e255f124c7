package generate

import (
	"context"
	"fmt"
	"hash/fnv"
	"io"
	"strings"
	"time"
)

// Simulated is a deterministic in-process generation client. It lets the
// whole pipeline run, and be tested, without the external service. The
// answer depends only on the prompt, so repeated calls are reproducible.
type Simulated struct {
	// ChunkDelay slows down streaming to mimic real token pacing. Zero in
	// tests.
	ChunkDelay time.Duration
}

// NewSimulated creates a simulated client.
func NewSimulated() *Simulated {
	return &Simulated{}
}

var simulatedAnswers = []string{
	"Vad roligt att du funderar på dina studier! Utifrån det du berättar skulle jag föreslå att du tittar närmare på de alternativ vi hittat och funderar på vad som känns viktigast för dig: ämnena, skolans läge eller stämningen på skolan.",
	"Tack för din fråga! Ett bra nästa steg är att besöka skolornas öppna hus och prata med elever som redan går där. Det ger ofta en bättre känsla än broschyrerna.",
	"Det låter som en spännande plan. Kom ihåg att du alltid kan kontakta studie- och yrkesvägledaren på din nuvarande skola för att prata igenom valet i lugn och ro.",
}

func (s *Simulated) pick(prompt string) string {
	h := fnv.New32a()
	h.Write([]byte(prompt))
	return simulatedAnswers[int(h.Sum32())%len(simulatedAnswers)]
}

func (s *Simulated) Complete(ctx context.Context, prompt string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	answer := s.pick(prompt)
	// Title prompts ask for a short headline; honor that shape.
	if strings.Contains(prompt, "rubrik") || strings.Contains(prompt, "title") {
		return "Samtal om studieval och framtidsplaner", nil
	}
	return answer, nil
}

func (s *Simulated) CompleteStream(ctx context.Context, prompt string) (*Stream, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	words := strings.Fields(s.pick(prompt))
	i := 0
	recv := func() (string, error) {
		if err := ctx.Err(); err != nil {
			return "", io.EOF
		}
		if i >= len(words) {
			return "", io.EOF
		}
		if s.ChunkDelay > 0 {
			select {
			case <-ctx.Done():
				return "", io.EOF
			case <-time.After(s.ChunkDelay):
			}
		}
		chunk := words[i]
		if i < len(words)-1 {
			chunk += " "
		}
		i++
		return chunk, nil
	}
	return NewStream(recv, nil), nil
}

var _ Client = (*Simulated)(nil)

// String identifies the client in startup logs.
func (s *Simulated) String() string {
	return fmt.Sprintf("simulated(%d canned answers)", len(simulatedAnswers))
}
