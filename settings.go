package fluidcore

// SettingType classifies a registered setting.
type SettingType int

const (
	NoType SettingType = iota
	NumType
	IntType
	StrType
	SetType // string restricted to an enumerated value set
)

// settingSpec declares one recognized option: its type, default, and
// legal range. The registry rejects unknown names and out-of-range
// values at Set time, so a bad option never reaches the subsystems
// built from it.
type settingSpec struct {
	typ SettingType

	defNum         float64
	minNum, maxNum float64

	defInt         int
	minInt, maxInt int
	multipleOf     int

	defStr  string
	allowed []string
}

var settingSpecs = map[string]settingSpec{
	"synth.sample-rate":      {typ: NumType, defNum: 44100, minNum: 8000, maxNum: 96000},
	"synth.gain":             {typ: NumType, defNum: 0.2, minNum: 0, maxNum: 10},
	"synth.polyphony":        {typ: IntType, defInt: 256, minInt: 1, maxInt: 65535},
	"synth.midi-channels":    {typ: IntType, defInt: 16, minInt: 16, maxInt: 256, multipleOf: 16},
	"synth.audio-channels":   {typ: IntType, defInt: 1, minInt: 1, maxInt: 128},
	"synth.audio-groups":     {typ: IntType, defInt: 1, minInt: 1, maxInt: 128},
	"synth.effects-channels": {typ: IntType, defInt: 2, minInt: 2, maxInt: 2},
	"synth.effects-groups":   {typ: IntType, defInt: 1, minInt: 1, maxInt: 128},
	"synth.cpu-cores":        {typ: IntType, defInt: 1, minInt: 1, maxInt: 256},
	"synth.threadsafe-api":   {typ: IntType, defInt: 1, minInt: 0, maxInt: 1},
	"synth.verbose":          {typ: IntType, defInt: 0, minInt: 0, maxInt: 1},
	"synth.min-note-length":  {typ: IntType, defInt: 10, minInt: 0, maxInt: 65535},
	"synth.event-queue-size": {typ: IntType, defInt: 1024, minInt: 4, maxInt: 1 << 20},

	"synth.midi-bank-select": {typ: SetType, defStr: "gs", allowed: []string{"gm", "gs", "xg", "mma"}},

	"synth.reverb.active":    {typ: IntType, defInt: 1, minInt: 0, maxInt: 1},
	"synth.reverb.room-size": {typ: NumType, defNum: 0.2, minNum: 0, maxNum: 1},
	"synth.reverb.damp":      {typ: NumType, defNum: 0.0, minNum: 0, maxNum: 1},
	"synth.reverb.width":     {typ: NumType, defNum: 0.5, minNum: 0, maxNum: 1},
	"synth.reverb.level":     {typ: NumType, defNum: 0.9, minNum: 0, maxNum: 1},

	"synth.chorus.active": {typ: IntType, defInt: 1, minInt: 0, maxInt: 1},
	"synth.chorus.nr":     {typ: IntType, defInt: 3, minInt: 0, maxInt: 99},
	"synth.chorus.level":  {typ: NumType, defNum: 2.0, minNum: 0, maxNum: 10},
	"synth.chorus.speed":  {typ: NumType, defNum: 0.3, minNum: 0.29, maxNum: 5},
	"synth.chorus.depth":  {typ: NumType, defNum: 8.0, minNum: 0, maxNum: 256},

	"synth.overflow.age":                {typ: NumType, defNum: 1000, minNum: -10000, maxNum: 10000},
	"synth.overflow.volume":             {typ: NumType, defNum: 500, minNum: -10000, maxNum: 10000},
	"synth.overflow.percussion":         {typ: NumType, defNum: 4000, minNum: -10000, maxNum: 10000},
	"synth.overflow.released":           {typ: NumType, defNum: -2000, minNum: -10000, maxNum: 10000},
	"synth.overflow.important":          {typ: NumType, defNum: 5000, minNum: -50000, maxNum: 50000},
	"synth.overflow.important-channels": {typ: StrType, defStr: ""},
}

// Settings is the synth's name→value option registry. Booleans
// are integer settings constrained to {0,1}, with Bool/SetBool sugar.
type Settings struct {
	nums map[string]float64
	ints map[string]int
	strs map[string]string
}

// NewSettings returns a registry populated with every recognized
// option's default.
func NewSettings() *Settings {
	s := &Settings{
		nums: make(map[string]float64),
		ints: make(map[string]int),
		strs: make(map[string]string),
	}
	for name, spec := range settingSpecs {
		switch spec.typ {
		case NumType:
			s.nums[name] = spec.defNum
		case IntType:
			s.ints[name] = spec.defInt
		case StrType, SetType:
			s.strs[name] = spec.defStr
		}
	}
	return s
}

// Type reports a setting's registered type, NoType for unknown names.
func (s *Settings) Type(name string) SettingType {
	spec, ok := settingSpecs[name]
	if !ok {
		return NoType
	}
	return spec.typ
}

func (s *Settings) SetNum(name string, v float64) error {
	spec, ok := settingSpecs[name]
	if !ok {
		return newError(KindNotFound, "settings.set-num", "unknown setting %q", name)
	}
	if spec.typ != NumType {
		return newError(KindInvalidArgument, "settings.set-num", "%q is not a num setting", name)
	}
	if v < spec.minNum || v > spec.maxNum {
		return newError(KindInvalidArgument, "settings.set-num", "%q=%g outside [%g,%g]", name, v, spec.minNum, spec.maxNum)
	}
	s.nums[name] = v
	return nil
}

func (s *Settings) Num(name string) (float64, error) {
	v, ok := s.nums[name]
	if !ok {
		return 0, newError(KindNotFound, "settings.num", "unknown num setting %q", name)
	}
	return v, nil
}

func (s *Settings) SetInt(name string, v int) error {
	spec, ok := settingSpecs[name]
	if !ok {
		return newError(KindNotFound, "settings.set-int", "unknown setting %q", name)
	}
	if spec.typ != IntType {
		return newError(KindInvalidArgument, "settings.set-int", "%q is not an int setting", name)
	}
	if v < spec.minInt || v > spec.maxInt {
		return newError(KindInvalidArgument, "settings.set-int", "%q=%d outside [%d,%d]", name, v, spec.minInt, spec.maxInt)
	}
	if spec.multipleOf > 0 && v%spec.multipleOf != 0 {
		return newError(KindInvalidArgument, "settings.set-int", "%q=%d is not a multiple of %d", name, v, spec.multipleOf)
	}
	s.ints[name] = v
	return nil
}

func (s *Settings) Int(name string) (int, error) {
	v, ok := s.ints[name]
	if !ok {
		return 0, newError(KindNotFound, "settings.int", "unknown int setting %q", name)
	}
	return v, nil
}

func (s *Settings) SetStr(name, v string) error {
	spec, ok := settingSpecs[name]
	if !ok {
		return newError(KindNotFound, "settings.set-str", "unknown setting %q", name)
	}
	if spec.typ != StrType && spec.typ != SetType {
		return newError(KindInvalidArgument, "settings.set-str", "%q is not a string setting", name)
	}
	if spec.typ == SetType {
		legal := false
		for _, a := range spec.allowed {
			if v == a {
				legal = true
				break
			}
		}
		if !legal {
			return newError(KindInvalidArgument, "settings.set-str", "%q=%q not in %v", name, v, spec.allowed)
		}
	}
	s.strs[name] = v
	return nil
}

func (s *Settings) Str(name string) (string, error) {
	v, ok := s.strs[name]
	if !ok {
		return "", newError(KindNotFound, "settings.str", "unknown string setting %q", name)
	}
	return v, nil
}

// SetBool and Bool are sugar over the {0,1}-constrained int settings.
func (s *Settings) SetBool(name string, v bool) error {
	i := 0
	if v {
		i = 1
	}
	return s.SetInt(name, i)
}

func (s *Settings) Bool(name string) (bool, error) {
	v, err := s.Int(name)
	return v != 0, err
}

// The unchecked getters are for internal use on names known to exist.
func (s *Settings) getNum(name string) float64 { return s.nums[name] }
func (s *Settings) getInt(name string) int     { return s.ints[name] }
func (s *Settings) getStr(name string) string  { return s.strs[name] }
func (s *Settings) getBool(name string) bool   { return s.ints[name] != 0 }
