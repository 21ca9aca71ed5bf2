// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/pdiddy/advisor-engine/internal/router"
	"github.com/pdiddy/advisor-engine/internal/session"
	"github.com/pdiddy/advisor-engine/pkg/types"
)

var askCmd = &cobra.Command{
	Use:   "ask [message]",
	Short: "Answer one conversation turn",
	Long: `Ask runs one turn of the advisor: it reuses a cached answer when an
equivalent question was already answered, answers follow-ups from history
when no new research is needed, and otherwise researches the question, ranks
the candidate tools and renders the recommendation.

With --session the conversation is stored in a YAML file, so successive ask
invocations continue the same conversation. The message is read from stdin
when no argument is given.`,
	RunE: runAsk,
}

func runAsk(cmd *cobra.Command, args []string) error {
	message := strings.Join(args, " ")
	if message == "" {
		data, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return fmt.Errorf("reading message: %w", err)
		}
		message = strings.TrimSpace(string(data))
	}
	if message == "" {
		return fmt.Errorf("message required: pass it as an argument or on stdin")
	}

	sessionPath, _ := cmd.Flags().GetString("session")
	domain, _ := cmd.Flags().GetString("domain")
	jsonOutput, _ := cmd.Flags().GetBool("json")

	ctx := cmd.Context()
	return withApp(ctx, func(a *app) error {
		var (
			checkpoints router.Checkpointer
			history     []types.Message
		)
		if sessionPath != "" {
			sess, err := session.Open(sessionPath)
			if err != nil {
				return err
			}
			checkpoints = sess
			history = sess.History()
			logger.Debug("session opened",
				zap.String("path", sess.Path()),
				zap.Int("messages", len(history)),
			)
		}

		r, err := a.newRouter(checkpoints)
		if err != nil {
			return err
		}
		out := r.HandleTurn(ctx, types.TurnInput{Domain: domain, Message: message, History: history})

		if jsonOutput {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(out)
		}
		fmt.Println(out.Render.Text())
		return nil
	})
}

func init() {
	askCmd.Flags().String("session", "", "YAML session file carrying history across invocations")
	askCmd.Flags().String("domain", "", "answer domain used in cache keys (default from config)")
	askCmd.Flags().Bool("json", false, "output the full turn outcome as JSON")

	rootCmd.AddCommand(askCmd)
}
