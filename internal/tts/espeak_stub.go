//go:build !espeak

package tts

import (
	"context"
	"errors"
)

var ErrNoEspeak = errors.New("built without espeak support (use -tags espeak)")

type Espeak struct{}

func NewEspeak(string) (*Espeak, error) { return nil, ErrNoEspeak }

func (*Espeak) Speak(context.Context, string) error { return ErrNoEspeak }
