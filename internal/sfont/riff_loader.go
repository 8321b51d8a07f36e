package sfont

import (
	"encoding/binary"
	"fmt"
	"io"
	"os"

	"github.com/go-audio/riff"
)

// RIFFLoader is a reference implementation of the Loader interface: it
// walks a real SF2 file's RIFF chunk tree far enough to populate a
// SoundFont arena's sample headers, instruments and presets; the sdta
// audio data is not read, so each Sample's Data16 stays nil. It is not a
// production-grade SF2 parser — a full parser is expected to arrive
// through AddSFLoader — but it demonstrates the loader contract end to
// end against real file bytes.
type RIFFLoader struct {
	nextID int
}

// NewRIFFLoader creates a loader that assigns increasing sfids.
func NewRIFFLoader() *RIFFLoader {
	return &RIFFLoader{nextID: 1}
}

func (l *RIFFLoader) Open(path string) (FileHandle, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	return NewOSFileHandle(f), nil
}

// LoadSoundFont walks the sfbk RIFF container's top-level LIST chunks
// (INFO, sdta, pdta) using go-audio/riff's chunk walker, decoding the pdta
// hydra sub-chunks phdr/pbag/pgen/inst/ibag/igen/shdr into the SoundFont
// arena; pmod and imod are skipped, so zones carry no modulators of
// their own. Samples are indexed by shdr order; presets and
// instruments are resolved from the bag/generator tables, with
// go-audio/riff handling the outer chunk walk.
func (l *RIFFLoader) LoadSoundFont(path string) (*SoundFont, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var riffID, format [4]byte
	var riffSize uint32
	if _, err := io.ReadFull(f, riffID[:]); err != nil {
		return nil, fmt.Errorf("not a RIFF file: %w", err)
	}
	if err := binary.Read(f, binary.LittleEndian, &riffSize); err != nil {
		return nil, fmt.Errorf("not a RIFF file: %w", err)
	}
	if _, err := io.ReadFull(f, format[:]); err != nil {
		return nil, fmt.Errorf("not a RIFF file: %w", err)
	}
	if string(riffID[:]) != "RIFF" || string(format[:]) != "sfbk" {
		return nil, fmt.Errorf("not an SF2 file: riff=%q format=%q", riffID, format)
	}

	sf := &SoundFont{ID: l.nextID, Name: path}
	l.nextID++

	var hydra sfHydra

	p := riff.New(f)
	for {
		chunk, err := p.NextChunk()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		switch string(chunk.ID[:]) {
		case "LIST":
			if err := readListChunk(chunk, &hydra); err != nil {
				return nil, err
			}
		default:
			io.Copy(io.Discard, chunk)
		}
	}

	hydra.populate(sf)
	return sf, nil
}

type sfHydra struct {
	presetHeaders []rawPresetHeader
	pbag          []rawBag
	pgen          []rawGen
	instHeaders   []rawInstHeader
	ibag          []rawBag
	igen          []rawGen
	samples       []rawSampleHeader
}

type rawPresetHeader struct {
	Name                       [20]byte
	Preset, Bank               uint16
	BagIdx                     uint16
	Library, Genre, Morphology uint32
}

type rawInstHeader struct {
	Name   [20]byte
	BagIdx uint16
}

type rawBag struct {
	GenIdx, ModIdx uint16
}

type rawGen struct {
	Oper   uint16
	Amount int16
}

type rawSampleHeader struct {
	Name               [20]byte
	Start, End         uint32
	Startloop, Endloop uint32
	SampleRate         uint32
	OriginalPitch      uint8
	PitchCorrection    int8
	SampleLink         uint16
	SampleType         uint16
}

// readListChunk inspects a LIST chunk's 4-byte subtype and, for pdta,
// walks its nested sub-chunks to fill in the hydra tables.
func readListChunk(chunk *riff.Chunk, hydra *sfHydra) error {
	var subtype [4]byte
	if _, err := io.ReadFull(chunk, subtype[:]); err != nil {
		return err
	}
	if string(subtype[:]) != "pdta" {
		io.Copy(io.Discard, chunk)
		return nil
	}
	for {
		var id [4]byte
		var size uint32
		if _, err := io.ReadFull(chunk, id[:]); err != nil {
			if err == io.EOF {
				return nil
			}
			return err
		}
		if err := binary.Read(chunk, binary.LittleEndian, &size); err != nil {
			return err
		}
		body := io.LimitReader(chunk, int64(size))
		switch string(id[:]) {
		case "phdr":
			decodeRecords(body, &hydra.presetHeaders)
		case "pbag":
			decodeRecords(body, &hydra.pbag)
		case "pgen":
			decodeRecords(body, &hydra.pgen)
		case "inst":
			decodeRecords(body, &hydra.instHeaders)
		case "ibag":
			decodeRecords(body, &hydra.ibag)
		case "igen":
			decodeRecords(body, &hydra.igen)
		case "shdr":
			decodeRecords(body, &hydra.samples)
		default:
			io.Copy(io.Discard, body)
		}
		if size%2 == 1 {
			io.CopyN(io.Discard, chunk, 1) // RIFF word alignment pad byte
		}
	}
}

func decodeRecords[T any](r io.Reader, out *[]T) {
	for {
		var rec T
		if err := binary.Read(r, binary.LittleEndian, &rec); err != nil {
			return
		}
		*out = append(*out, rec)
	}
}

// populate converts the decoded hydra tables into SoundFont arena
// Samples/Instruments/Presets, resolving each preset/instrument's
// generator-indexed bag range the way the SF2 spec defines it (each
// header's BagIdx through the next header's BagIdx, minus the terminal
// record).
func (h *sfHydra) populate(sf *SoundFont) {
	for _, s := range h.samples {
		if string(s.Name[:4]) == "EOS\x00" {
			continue
		}
		sf.Samples = append(sf.Samples, Sample{
			Name:            cstr(s.Name[:]),
			SampleRate:      int(s.SampleRate),
			LoopStart:       int(s.Startloop - s.Start),
			LoopEnd:         int(s.Endloop - s.Start),
			FrameCount:      int(s.End - s.Start),
			OriginalPitch:   int(s.OriginalPitch),
			PitchCorrection: s.PitchCorrection,
			Type:            SampleType(s.SampleType),
		})
	}

	for _, inst := range h.instHeaders {
		if cstr(inst.Name[:]) == "EOI" {
			continue
		}
		sf.Instruments = append(sf.Instruments, Instrument{Name: cstr(inst.Name[:])})
	}
	for i := range h.instHeaders {
		if i+1 >= len(h.instHeaders) {
			break
		}
		zones := buildZones(h.instHeaders[i].BagIdx, h.instHeaders[i+1].BagIdx, h.ibag, h.igen, true)
		if i < len(sf.Instruments) {
			sf.Instruments[i].Zones = zones
		}
	}

	for _, ph := range h.presetHeaders {
		if cstr(ph.Name[:]) == "EOP" {
			continue
		}
		sf.Presets = append(sf.Presets, Preset{
			Name:    cstr(ph.Name[:]),
			Bank:    int(ph.Bank),
			Program: int(ph.Preset),
		})
	}
	for i := range h.presetHeaders {
		if i+1 >= len(h.presetHeaders) {
			break
		}
		zones := buildZones(h.presetHeaders[i].BagIdx, h.presetHeaders[i+1].BagIdx, h.pbag, h.pgen, false)
		if i < len(sf.Presets) {
			sf.Presets[i].Zones = zones
		}
	}
}

func buildZones(from, to uint16, bags []rawBag, gens []rawGen, isInstrument bool) []Zone {
	var zones []Zone
	for b := from; b < to && int(b)+1 < len(bags); b++ {
		z := Zone{Gens: DefaultGenerators(), InstrumentIdx: -1, SampleIdx: -1}
		genFrom, genTo := bags[b].GenIdx, bags[b+1].GenIdx
		for g := genFrom; g < genTo && int(g) < len(gens); g++ {
			applyGen(&z, gens[g], isInstrument)
		}
		zones = append(zones, z)
	}
	return zones
}

func applyGen(z *Zone, g rawGen, isInstrument bool) {
	id := GenID(g.Oper)
	if id >= GenCount {
		return
	}
	z.Gens[id] = g.Amount
	z.GensSet[id] = true
	switch id {
	case GenKeyRange:
		z.KeyRange = UnpackRange(g.Amount)
	case GenVelRange:
		z.VelRange = UnpackRange(g.Amount)
	case GenSampleID:
		if isInstrument {
			z.SampleIdx = int(g.Amount)
		}
	case GenInstrument:
		if !isInstrument {
			z.InstrumentIdx = int(g.Amount)
		}
	}
}

func cstr(b []byte) string {
	for i, c := range b {
		if c == 0 {
			return string(b[:i])
		}
	}
	return string(b)
}
