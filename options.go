package ptdict

import (
	"github.com/datatrails/go-datatrails-common/logger"
	"github.com/google/uuid"
)

// EncoderOptions controls how a trie is written.
type EncoderOptions struct {
	// Frequencies stores a one byte frequency after every terminal label.
	Frequencies bool
	// Attributes are free form key/value pairs kept in the header.
	Attributes map[string]string
	// ID identifies the dictionary. A random ID is generated when it is nil.
	ID  uuid.UUID
	Log logger.Logger
}

// ReaderOptions controls how a dictionary is opened.
type ReaderOptions struct {
	Log logger.Logger
}

// Option is a generic option type shared by the encoder and the reader.
// Implementations type assert to their options record and ignore options
// that do not apply to them.
type Option func(any)

// WithFrequencies makes the encoder store a frequency byte for every word.
func WithFrequencies(enabled bool) Option {
	return func(opts any) {
		if o, ok := opts.(*EncoderOptions); ok {
			o.Frequencies = enabled
		}
	}
}

// WithAttributes sets the key/value pairs written to the header.
func WithAttributes(attrs map[string]string) Option {
	return func(opts any) {
		if o, ok := opts.(*EncoderOptions); ok {
			o.Attributes = attrs
		}
	}
}

// WithDictionaryID sets the dictionary ID instead of a random one.
func WithDictionaryID(id uuid.UUID) Option {
	return func(opts any) {
		if o, ok := opts.(*EncoderOptions); ok {
			o.ID = id
		}
	}
}

// WithLogger sets the logger for both encoding and reading.
func WithLogger(log logger.Logger) Option {
	return func(opts any) {
		switch o := opts.(type) {
		case *EncoderOptions:
			o.Log = log
		case *ReaderOptions:
			o.Log = log
		}
	}
}

func newEncoderOptions(opts []Option) EncoderOptions {
	var o EncoderOptions
	for _, opt := range opts {
		opt(&o)
	}
	if o.ID == uuid.Nil {
		o.ID = uuid.New()
	}
	return o
}

func newReaderOptions(opts []Option) ReaderOptions {
	var o ReaderOptions
	for _, opt := range opts {
		opt(&o)
	}
	return o
}
