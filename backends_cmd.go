package main

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/dgnsrekt/narrate/tts"
	"github.com/dgnsrekt/narrate/tts/engines"
	"github.com/dgnsrekt/narrate/tts/engines/builtin"
)

var backendsCmd = &cobra.Command{
	Use:     "backends",
	Short:   "List speech backends and whether they are available",
	Example: paragraph("narrate backends"),
	Args:    cobra.NoArgs,
	RunE: func(*cobra.Command, []string) error {
		registry := builtin.NewRegistry(cfg, false)
		return printBackends(os.Stdout, registry, builtin.NewHost(cfg, nil))
	},
}

var voicesCmd = &cobra.Command{
	Use:     "voices [QUERY]",
	Short:   "List the speech engine's voices",
	Example: paragraph("narrate voices\nnarrate voices english"),
	Args:    cobra.MaximumNArgs(1),
	RunE: func(_ *cobra.Command, args []string) error {
		b, err := openBackend(tts.KindEngine.String())
		if err != nil {
			return err
		}
		var query string
		if len(args) == 1 {
			query = args[0]
		}
		return printVoices(os.Stdout, b, query)
	},
}

// backendStatus is the outcome of probing one backend.
type backendStatus struct {
	info    engines.Info
	name    string
	err     error
	elapsed time.Duration
}

// checkBackends creates and initializes every registered backend.
func checkBackends(registry *engines.Registry, host tts.Host) []backendStatus {
	infos := registry.List()
	statuses := make([]backendStatus, 0, len(infos))
	for _, info := range infos {
		st := backendStatus{info: info, name: info.Name}
		b, err := registry.Create(info.Name)
		if err != nil {
			st.err = err
			statuses = append(statuses, st)
			continue
		}

		start := time.Now()
		st.err = b.Initialize(host)
		st.elapsed = time.Since(start)
		if st.err == nil {
			st.name = b.Name()
			if v, ok := b.(interface{ Version() string }); ok && v.Version() != "" {
				st.name += " " + v.Version()
			}
		}
		statuses = append(statuses, st)
	}
	return statuses
}

func printBackends(w io.Writer, registry *engines.Registry, host tts.Host) error {
	statuses := checkBackends(registry, host)

	fmt.Fprintln(w, headerStyle.Render(fmt.Sprintf("%-16s %-14s %8s  %s", "BACKEND", "KIND", "PRIORITY", "STATUS")))
	available := 0
	for _, st := range statuses {
		status := failStyle.Render("unavailable") + faintStyle.Render(" ("+describe(st.err)+")")
		if st.err == nil {
			available++
			status = okStyle.Render("ready") + faintStyle.Render(fmt.Sprintf(" (%s in %s)", st.name, formatDuration(st.elapsed)))
		}
		fmt.Fprintf(w, "%-16s %-14s %8d  %s\n", st.info.Name, st.info.Kind, st.info.Priority, status)
	}

	fmt.Fprintf(w, "\n%s of %s available\n",
		humanize.Comma(int64(available)), humanize.Comma(int64(len(statuses))))
	return nil
}

// describe names a backend error by its stable name.
func describe(err error) string {
	if be, ok := err.(tts.BackendError); ok {
		return be.String()
	}
	return err.Error()
}

func formatDuration(d time.Duration) string {
	return humanize.SIWithDigits(d.Seconds(), 1, "s")
}

func printVoices(w io.Writer, b tts.Backend, query string) error {
	vc, ok := b.(tts.VoiceController)
	if !ok {
		return fmt.Errorf("%s has no voices", b.Name())
	}
	voices, err := vc.Voices()
	if err != nil {
		return fmt.Errorf("unable to list voices: %w", err)
	}
	current, _ := vc.Voice()

	matches := engines.SearchVoices(voices, query)
	fmt.Fprintln(w, headerStyle.Render(fmt.Sprintf("  %-32s %s", "VOICE", "LANGUAGE")))
	for _, v := range matches {
		marker := "  "
		if v.ID == current.ID {
			marker = okStyle.Render("* ")
		}
		label := v.ID
		if v.Name != "" && !strings.EqualFold(v.Name, v.ID) {
			label += faintStyle.Render(" " + v.Name)
		}
		fmt.Fprintf(w, "%s%-32s %s\n", marker, label, v.Language)
	}

	fmt.Fprintf(w, "\n%s of %s voices on %s\n",
		humanize.Comma(int64(len(matches))), humanize.Comma(int64(len(voices))), b.Name())
	return nil
}
