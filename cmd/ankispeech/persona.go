package main

import (
	"fmt"
	"io"
	"log/slog"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"ankispeech/pkg/config"
	"ankispeech/pkg/model"
	"ankispeech/pkg/persona"
	"ankispeech/pkg/tts/gemini"
)

func newPersonaCmd(g *globalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "persona",
		Short: "Manage speaker personas",
	}

	add := &cobra.Command{
		Use:   "add <name> <voice> [prompt-prefix]",
		Short: "Add or replace a persona",
		Long: `Adds a persona to the personas file, replacing any persona with the same
name. Cards whose speaker field names the persona are spoken with its voice
and prompt prefix.

Examples:
  ankispeech persona add Tutor Kore "Say in a warm, patient voice:"
  ankispeech persona add Guide Puck`,
		Args: cobra.RangeArgs(2, 3),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(g, cmd.Flags())
			if err != nil {
				return err
			}
			p := model.Persona{Name: args[0], Voice: args[1]}
			if len(args) == 3 {
				p.PromptPrefix = args[2]
			}
			return addPersona(cmd.OutOrStdout(), cfg, p)
		},
	}

	list := &cobra.Command{
		Use:   "list",
		Short: "List personas",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(g, cmd.Flags())
			if err != nil {
				return err
			}
			t, err := persona.Load(cfg.Files.Personas)
			if err != nil {
				return err
			}
			printPersonas(cmd.OutOrStdout(), t.List())
			return nil
		},
	}

	cmd.AddCommand(add, list)
	return cmd
}

func addPersona(w io.Writer, cfg *config.Config, p model.Persona) error {
	if cfg.TTS.Engine == config.EngineGemini {
		if _, ok := gemini.LookupVoice(p.Voice); !ok {
			slog.Warn("Voice is not a known Gemini voice", "voice", p.Voice)
			fmt.Fprintf(w, "Warning: %q is not a known Gemini voice.\n", p.Voice)
		}
	}

	t, err := persona.Open(cfg.Files.Personas)
	if err != nil {
		return err
	}
	if err := t.Add(p); err != nil {
		return err
	}
	fmt.Fprintf(w, "Persona %q saved to %s (%d personas).\n", p.Name, cfg.Files.Personas, t.Len())
	return nil
}

func printPersonas(w io.Writer, ps []model.Persona) {
	if len(ps) == 0 {
		fmt.Fprintln(w, "No personas defined.")
		return
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "NAME\tVOICE\tPROMPT PREFIX")
	for _, p := range ps {
		fmt.Fprintf(tw, "%s\t%s\t%s\n", p.Name, p.Voice, p.PromptPrefix)
	}
	tw.Flush()
}
