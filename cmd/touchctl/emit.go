package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jadevit/touchctl/internal/actions"
)

// newEmitCmd builds the "emit" debug subcommand, which talks directly to a
// fresh uinput sink rather than the control socket — useful for verifying
// the virtual device works without a running daemon (spec §6: debug
// tooling, supplemented from the original CLI's `emit` command).
func newEmitCmd() *cobra.Command {
	emit := &cobra.Command{
		Use:   "emit",
		Short: "Emit a synthetic input event via a throwaway virtual device",
	}
	emit.AddCommand(newEmitClickCmd(), newEmitScrollCmd(), newEmitKeyCmd())
	return emit
}

func newEmitClickCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "click <left|right|middle>",
		Short: "Emit a mouse click",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sink, err := actions.NewVirtualInput()
			if err != nil {
				return err
			}
			defer sink.Close()
			if err := sink.ClickMouse(args[0]); err != nil {
				return err
			}
			fmt.Printf("ok: clicked %s\n", args[0])
			return nil
		},
	}
}

func newEmitScrollCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "scroll <steps>",
		Short: "Emit vertical scroll (+/- steps)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			steps, err := strconv.Atoi(args[0])
			if err != nil {
				return fmt.Errorf("usage: touchctl emit scroll <steps>: %w", err)
			}
			sink, err := actions.NewVirtualInput()
			if err != nil {
				return err
			}
			defer sink.Close()
			if err := sink.ScrollVertical(int32(steps)); err != nil {
				return err
			}
			fmt.Printf("ok: scrolled vertical %d\n", steps)
			return nil
		},
	}
}

func newEmitKeyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "key CTRL+EQUAL",
		Short: "Emit a key or chord",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sink, err := actions.NewVirtualInput()
			if err != nil {
				return err
			}
			defer sink.Close()

			tokens := strings.Split(args[0], "+")
			keys := make([]actions.Key, 0, len(tokens))
			for _, tok := range tokens {
				k, err := actions.ParseKeyToken(tok)
				if err != nil {
					return err
				}
				keys = append(keys, k)
			}
			if err := sink.KeyChord(keys); err != nil {
				return err
			}
			fmt.Printf("ok: sent key chord %s\n", args[0])
			return nil
		},
	}
}
