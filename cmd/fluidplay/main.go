// fluidplay is a small demo driver for the fluidcore synthesis engine:
// it loads a SoundFont, then either plays a test arpeggio live, renders
// a Standard MIDI File to a .wav, or plays a MIDI file through the
// system's audio output.
package main

import (
	"fmt"
	"os"
	"time"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/spf13/cobra"

	fluidcore "github.com/go-synth/fluidcore"
	intaudio "github.com/go-synth/fluidcore/internal/audio"
	"github.com/go-synth/fluidcore/internal/midiadapt"
)

var (
	sf2Path    string
	sampleRate int
	gain       float64
	polyphony  int
)

func main() {
	root := &cobra.Command{
		Use:   "fluidplay",
		Short: "SoundFont synthesizer demo driver",
	}
	root.PersistentFlags().StringVar(&sf2Path, "sf2", "", "path to a SoundFont (.sf2) file")
	root.PersistentFlags().IntVar(&sampleRate, "rate", 44100, "output sample rate")
	root.PersistentFlags().Float64Var(&gain, "gain", 0.2, "master gain [0,10]")
	root.PersistentFlags().IntVar(&polyphony, "polyphony", 256, "voice polyphony")

	root.AddCommand(playCmd(), renderCmd(), midiCmd())
	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newSynth() (*fluidcore.Synth, error) {
	settings := fluidcore.NewSettings()
	if err := settings.SetNum("synth.sample-rate", float64(sampleRate)); err != nil {
		return nil, err
	}
	if err := settings.SetNum("synth.gain", gain); err != nil {
		return nil, err
	}
	if err := settings.SetInt("synth.polyphony", polyphony); err != nil {
		return nil, err
	}
	synth, err := fluidcore.New(settings)
	if err != nil {
		return nil, err
	}
	if sf2Path != "" {
		if _, err := synth.SFLoad(sf2Path, true); err != nil {
			synth.Close()
			return nil, err
		}
	}
	return synth, nil
}

func playCmd() *cobra.Command {
	var seconds int
	cmd := &cobra.Command{
		Use:   "play",
		Short: "Play a test arpeggio through the audio output",
		RunE: func(cmd *cobra.Command, args []string) error {
			synth, err := newSynth()
			if err != nil {
				return err
			}
			defer synth.Close()

			player, err := intaudio.NewPlayer(sampleRate, synth.StreamSource())
			if err != nil {
				return err
			}
			defer player.Stop()
			player.Play()

			keys := []int{60, 64, 67, 72}
			for i, k := range keys {
				if err := synth.NoteOn(0, k, 100); err != nil {
					return err
				}
				time.Sleep(300 * time.Millisecond)
				if i < len(keys)-1 {
					_ = synth.NoteOff(0, k)
				}
			}
			time.Sleep(time.Duration(seconds) * time.Second)
			return nil
		},
	}
	cmd.Flags().IntVar(&seconds, "hold", 2, "seconds to hold the final chord tone")
	return cmd
}

func renderCmd() *cobra.Command {
	var midiPath, outPath string
	var tailSeconds float64
	cmd := &cobra.Command{
		Use:   "render",
		Short: "Render a Standard MIDI File offline to a .wav",
		RunE: func(cmd *cobra.Command, args []string) error {
			if midiPath == "" || outPath == "" {
				return fmt.Errorf("both --midi and --out are required")
			}
			synth, err := newSynth()
			if err != nil {
				return err
			}
			defer synth.Close()

			seq, err := midiadapt.LoadSMF(midiPath)
			if err != nil {
				return err
			}

			f, err := os.Create(outPath)
			if err != nil {
				return err
			}
			defer f.Close()

			enc := wav.NewEncoder(f, sampleRate, 16, 2, 1)
			lbuf := make([]int16, 0)
			rbuf := make([]int16, 0)
			intBuf := &audio.IntBuffer{
				Format:         &audio.Format{NumChannels: 2, SampleRate: sampleRate},
				SourceBitDepth: 16,
			}

			render := func(frames int) error {
				for frames > 0 {
					n := frames
					if n > 4096 {
						n = 4096
					}
					if cap(lbuf) < n {
						lbuf = make([]int16, n)
						rbuf = make([]int16, n)
					}
					lbuf, rbuf = lbuf[:n], rbuf[:n]
					if err := synth.WriteS16(n, lbuf, 0, 1, rbuf, 0, 1); err != nil {
						return err
					}
					data := make([]int, 2*n)
					for i := 0; i < n; i++ {
						data[2*i] = int(lbuf[i])
						data[2*i+1] = int(rbuf[i])
					}
					intBuf.Data = data
					if err := enc.Write(intBuf); err != nil {
						return err
					}
					frames -= n
				}
				return nil
			}

			tail := int(tailSeconds * float64(sampleRate))
			if err := midiadapt.RenderSequence(synth, seq, sampleRate, tail, render); err != nil {
				return err
			}
			return enc.Close()
		},
	}
	cmd.Flags().StringVar(&midiPath, "midi", "", "Standard MIDI File to render")
	cmd.Flags().StringVar(&outPath, "out", "", "output .wav path")
	cmd.Flags().Float64Var(&tailSeconds, "tail", 2.0, "seconds rendered past the last event")
	return cmd
}

func midiCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "midi [file.mid]",
		Short: "Play a Standard MIDI File through the audio output",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			synth, err := newSynth()
			if err != nil {
				return err
			}
			defer synth.Close()

			seq, err := midiadapt.LoadSMF(args[0])
			if err != nil {
				return err
			}

			player, err := intaudio.NewPlayer(sampleRate, synth.StreamSource())
			if err != nil {
				return err
			}
			defer player.Stop()
			player.Play()

			start := time.Now()
			for _, tm := range seq {
				due := time.Duration(tm.MicroSeconds) * time.Microsecond
				if wait := due - time.Since(start); wait > 0 {
					time.Sleep(wait)
				}
				if err := midiadapt.Apply(synth, tm.Message); err != nil {
					return err
				}
			}
			time.Sleep(2 * time.Second)
			return nil
		},
	}
	return cmd
}
