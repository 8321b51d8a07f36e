package sfont

import "io"

// SeekOrigin matches the loader's seek(handle, offset, origin) contract.
type SeekOrigin int

const (
	SeekSet SeekOrigin = iota
	SeekCur
	SeekEnd
)

// FileHandle is the four-callback capability (read, seek, tell, close) a
// loader exposes for one open SF2 file; opening it is Loader.Open.
// RIFFLoader.Open wraps an os.File in one through NewOSFileHandle.
type FileHandle interface {
	Read(buf []byte) (count int, err error)
	Seek(offset int64, origin SeekOrigin) error
	Tell() (int64, error)
	Close() error
}

// NotifyReason enumerates preset lifecycle notifications.
type NotifyReason int

const (
	NotifySelected NotifyReason = iota
	NotifyUnselected
	NotifySampleDone
)

// PresetHandle is the capability interface a loaded preset exposes to the
// voice parameter compiler. Concrete presets from this
// package's SoundFont arena satisfy it via presetHandle below.
type PresetHandle interface {
	Name() string
	BankNum() int
	Num() int
	// NoteOn is invoked by the facade to let a custom preset implementation
	// (not the SF2 zone-table path) synthesize directly; the SF2 arena's own
	// presets are compiled via internal/compile instead and never need
	// this, but the capability is part of the documented loader contract.
	NoteOn(channel, key, vel int) error
	Notify(reason NotifyReason, channel int) error
}

// Loader is the capability interface consumed from an external SF2 parser:
// open a path, yield a SoundFont-like object, iterate its presets.
type Loader interface {
	Open(path string) (FileHandle, error)
	LoadSoundFont(path string) (*SoundFont, error)
}

// presetHandle adapts a *Preset from this package's own arena to
// PresetHandle, for callers that want the capability-interface view rather
// than direct struct access.
type presetHandle struct {
	p *Preset
}

func (h presetHandle) Name() string                                  { return h.p.Name }
func (h presetHandle) BankNum() int                                  { return h.p.Bank }
func (h presetHandle) Num() int                                      { return h.p.Program }
func (h presetHandle) NoteOn(channel, key, vel int) error            { return nil }
func (h presetHandle) Notify(reason NotifyReason, channel int) error { return nil }

// AsPresetHandle wraps p as a PresetHandle.
func AsPresetHandle(p *Preset) PresetHandle { return presetHandle{p: p} }

// osFileHandle adapts a ReadSeekCloser to FileHandle, used by loaders that
// read from the local filesystem.
type osFileHandle struct {
	f io.ReadSeekCloser
}

func (h *osFileHandle) Read(buf []byte) (int, error) { return h.f.Read(buf) }

func (h *osFileHandle) Seek(offset int64, origin SeekOrigin) error {
	var whence int
	switch origin {
	case SeekSet:
		whence = io.SeekStart
	case SeekCur:
		whence = io.SeekCurrent
	case SeekEnd:
		whence = io.SeekEnd
	}
	_, err := h.f.Seek(offset, whence)
	return err
}

func (h *osFileHandle) Tell() (int64, error) {
	return h.f.Seek(0, io.SeekCurrent)
}

func (h *osFileHandle) Close() error { return h.f.Close() }

// NewOSFileHandle wraps an io.ReadSeekCloser as a FileHandle.
func NewOSFileHandle(f io.ReadSeekCloser) FileHandle {
	return &osFileHandle{f: f}
}
