package fluidcore

import "github.com/go-synth/fluidcore/internal/sfont"

// AddSFLoader registers an additional loader, tried before the ones
// already present (most recently added wins), matching the loader
// stacking behavior of the documented external-parser contract.
func (s *Synth) AddSFLoader(l sfont.Loader) {
	s.lock()
	defer s.unlock()
	s.loaders = append([]sfont.Loader{l}, s.loaders...)
}

// SFLoad loads a SoundFont file and returns its id. The newest font
// wins preset lookups. resetPresets re-resolves every channel's preset
// against the updated font list.
func (s *Synth) SFLoad(path string, resetPresets bool) (int, error) {
	s.lock()
	defer s.unlock()
	if s.closed {
		return 0, newError(KindState, "sfload", "synth is closed")
	}
	var lastErr error
	for _, l := range s.loaders {
		font, err := l.LoadSoundFont(path)
		if err != nil {
			lastErr = err
			continue
		}
		font.ID = s.nextSF
		s.nextSF++
		s.fonts = append([]loadedFont{{font: font, path: path, loader: l}}, s.fonts...)
		if resetPresets {
			s.resetPresetsLocked()
		}
		s.log.Info("loaded soundfont", "id", font.ID, "path", path, "presets", len(font.Presets))
		return font.ID, nil
	}
	return 0, wrapError(KindIOError, "sfload", lastErr)
}

// AddSoundFont registers an already-built in-memory soundfont arena
// (e.g. from a custom loader or a test) and returns its id.
func (s *Synth) AddSoundFont(font *sfont.SoundFont) int {
	s.lock()
	defer s.unlock()
	font.ID = s.nextSF
	s.nextSF++
	s.fonts = append([]loadedFont{{font: font}}, s.fonts...)
	return font.ID
}

// SFUnload removes a soundfont. Unloading is refused while any voice
// still references the font's samples.
func (s *Synth) SFUnload(id int, resetPresets bool) error {
	s.lock()
	defer s.unlock()
	s.reclaimFinished()
	for i, f := range s.fonts {
		if f.font.ID != id {
			continue
		}
		if f.font.InUse() {
			return newError(KindState, "sfunload", "soundfont %d has sounding voices", id)
		}
		s.fonts = append(s.fonts[:i], s.fonts[i+1:]...)
		if resetPresets {
			s.resetPresetsLocked()
		}
		return nil
	}
	return newError(KindNotFound, "sfunload", "no soundfont with id %d", id)
}

// SFReload re-runs the loader for a previously loaded font, keeping
// its id and list position.
func (s *Synth) SFReload(id int) error {
	s.lock()
	defer s.unlock()
	s.reclaimFinished()
	for i, f := range s.fonts {
		if f.font.ID != id {
			continue
		}
		if f.loader == nil || f.path == "" {
			return newError(KindState, "sfreload", "soundfont %d was not loaded from a file", id)
		}
		if f.font.InUse() {
			return newError(KindState, "sfreload", "soundfont %d has sounding voices", id)
		}
		font, err := f.loader.LoadSoundFont(f.path)
		if err != nil {
			return wrapError(KindIOError, "sfreload", err)
		}
		font.ID = id
		s.fonts[i].font = font
		return nil
	}
	return newError(KindNotFound, "sfreload", "no soundfont with id %d", id)
}

// resetPresetsLocked re-resolves each channel's (bank, program) and
// sends NotifySelected to every preset that resolves; no unselect
// notification is sent.
func (s *Synth) resetPresetsLocked() {
	for i, c := range s.channels {
		if _, p := s.findPreset(c.Bank, c.Program); p != nil {
			_ = sfont.AsPresetHandle(p).Notify(sfont.NotifySelected, i)
		}
	}
}

// SoundFontCount reports how many fonts are loaded.
func (s *Synth) SoundFontCount() int {
	s.lock()
	defer s.unlock()
	return len(s.fonts)
}
