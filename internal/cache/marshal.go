package cache

import (
	"fmt"
	"time"

	"github.com/dekarrin/rezi"
)

func encStrings(sl []string) []byte {
	data := rezi.EncInt(len(sl))
	for _, s := range sl {
		data = append(data, rezi.EncString(s)...)
	}
	return data
}

func decStrings(data []byte) ([]string, int, error) {
	count, n, err := rezi.DecInt(data)
	if err != nil {
		return nil, 0, err
	}
	total := n
	data = data[n:]

	if count < 0 {
		return nil, 0, fmt.Errorf("negative string count %d", count)
	}

	var sl []string
	if count > 0 {
		sl = make([]string, count)
	}
	for i := 0; i < count; i++ {
		sl[i], n, err = rezi.DecString(data)
		if err != nil {
			return nil, 0, fmt.Errorf("string %d: %w", i, err)
		}
		total += n
		data = data[n:]
	}
	return sl, total, nil
}

func (w Warning) MarshalBinary() ([]byte, error) {
	var data []byte

	data = append(data, rezi.EncString(w.File)...)
	data = append(data, rezi.EncInt(w.Line)...)
	data = append(data, rezi.EncInt(w.Column)...)
	data = append(data, rezi.EncString(w.Stage)...)
	data = append(data, rezi.EncString(w.Message)...)
	data = append(data, rezi.EncString(w.SourceLine)...)

	return data, nil
}

func (w *Warning) UnmarshalBinary(data []byte) error {
	var err error
	var n int

	w.File, n, err = rezi.DecString(data)
	if err != nil {
		return fmt.Errorf("file: %w", err)
	}
	data = data[n:]

	w.Line, n, err = rezi.DecInt(data)
	if err != nil {
		return fmt.Errorf("line: %w", err)
	}
	data = data[n:]

	w.Column, n, err = rezi.DecInt(data)
	if err != nil {
		return fmt.Errorf("column: %w", err)
	}
	data = data[n:]

	w.Stage, n, err = rezi.DecString(data)
	if err != nil {
		return fmt.Errorf("stage: %w", err)
	}
	data = data[n:]

	w.Message, n, err = rezi.DecString(data)
	if err != nil {
		return fmt.Errorf("message: %w", err)
	}
	data = data[n:]

	w.SourceLine, _, err = rezi.DecString(data)
	if err != nil {
		return fmt.Errorf("source line: %w", err)
	}

	return nil
}

func (k Kernel) MarshalBinary() ([]byte, error) {
	var data []byte

	data = append(data, rezi.EncString(k.Name)...)
	data = append(data, encStrings(k.Args)...)
	data = append(data, encStrings(k.Outer)...)
	data = append(data, encStrings(k.Inner)...)

	return data, nil
}

func (k *Kernel) UnmarshalBinary(data []byte) error {
	var err error
	var n int

	k.Name, n, err = rezi.DecString(data)
	if err != nil {
		return fmt.Errorf("name: %w", err)
	}
	data = data[n:]

	k.Args, n, err = decStrings(data)
	if err != nil {
		return fmt.Errorf("args: %w", err)
	}
	data = data[n:]

	k.Outer, n, err = decStrings(data)
	if err != nil {
		return fmt.Errorf("outer extents: %w", err)
	}
	data = data[n:]

	k.Inner, _, err = decStrings(data)
	if err != nil {
		return fmt.Errorf("inner extents: %w", err)
	}

	return nil
}

// MarshalBinary encodes e with REZI. The ID is not part of the encoding; the
// store keeps it separately.
func (e Entry) MarshalBinary() ([]byte, error) {
	var data []byte

	data = append(data, rezi.EncString(e.Key)...)
	data = append(data, rezi.EncString(e.Version)...)
	data = append(data, rezi.EncString(e.Mode)...)
	data = append(data, rezi.EncString(e.File)...)
	data = append(data, rezi.EncString(e.Source)...)
	data = append(data, rezi.EncInt(int(e.Created.Unix()))...)

	data = append(data, rezi.EncInt(len(e.Warnings))...)
	for _, w := range e.Warnings {
		data = append(data, rezi.EncBinary(w)...)
	}
	data = append(data, rezi.EncInt(len(e.Kernels))...)
	for _, k := range e.Kernels {
		data = append(data, rezi.EncBinary(k)...)
	}

	return data, nil
}

func (e *Entry) UnmarshalBinary(data []byte) error {
	var err error
	var n int

	e.Key, n, err = rezi.DecString(data)
	if err != nil {
		return fmt.Errorf("key: %w", err)
	}
	data = data[n:]

	e.Version, n, err = rezi.DecString(data)
	if err != nil {
		return fmt.Errorf("version: %w", err)
	}
	data = data[n:]

	e.Mode, n, err = rezi.DecString(data)
	if err != nil {
		return fmt.Errorf("mode: %w", err)
	}
	data = data[n:]

	e.File, n, err = rezi.DecString(data)
	if err != nil {
		return fmt.Errorf("file: %w", err)
	}
	data = data[n:]

	e.Source, n, err = rezi.DecString(data)
	if err != nil {
		return fmt.Errorf("source: %w", err)
	}
	data = data[n:]

	var created int
	created, n, err = rezi.DecInt(data)
	if err != nil {
		return fmt.Errorf("created: %w", err)
	}
	data = data[n:]
	e.Created = time.Unix(int64(created), 0)

	var count int
	count, n, err = rezi.DecInt(data)
	if err != nil {
		return fmt.Errorf("warning count: %w", err)
	}
	data = data[n:]
	e.Warnings = nil
	for i := 0; i < count; i++ {
		var w Warning
		n, err = rezi.DecBinary(data, &w)
		if err != nil {
			return fmt.Errorf("warning %d: %w", i, err)
		}
		data = data[n:]
		e.Warnings = append(e.Warnings, w)
	}

	count, n, err = rezi.DecInt(data)
	if err != nil {
		return fmt.Errorf("kernel count: %w", err)
	}
	data = data[n:]
	e.Kernels = nil
	for i := 0; i < count; i++ {
		var k Kernel
		n, err = rezi.DecBinary(data, &k)
		if err != nil {
			return fmt.Errorf("kernel %d: %w", i, err)
		}
		data = data[n:]
		e.Kernels = append(e.Kernels, k)
	}

	return nil
}
