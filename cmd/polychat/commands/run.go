package commands

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/polychat/polychat/internal/chat"
	"github.com/polychat/polychat/pkg/types"
)

var (
	runModel       string
	runChatID      string
	runStream      bool
	runAttachments []string
	runShowUsage   bool
)

var runCmd = &cobra.Command{
	Use:   "run [message]",
	Short: "Send one message and print the reply",
	Long: `Send one message to the active model and print the assistant reply.

Examples:
  polychat run "What is 2+2?"
  polychat run --stream "Tell me a story"
  polychat run --model openai/gpt-4o "Explain this" --attach diagram.png
  polychat run --chat 01jn3... "Continue from before"`,
	Args: cobra.ExactArgs(1),
	RunE: runRun,
}

func init() {
	runCmd.Flags().StringVarP(&runModel, "model", "m", "", "Model as provider/model-id")
	runCmd.Flags().StringVar(&runChatID, "chat", "", "Continue an existing chat by ID")
	runCmd.Flags().BoolVar(&runStream, "stream", false, "Stream the reply as it arrives")
	runCmd.Flags().StringArrayVar(&runAttachments, "attach", nil, "File or image URL to attach (repeatable)")
	runCmd.Flags().BoolVar(&runShowUsage, "usage", false, "Print token usage after the reply")
}

func runRun(cmd *cobra.Command, args []string) error {
	a, err := bootstrap()
	if err != nil {
		return err
	}
	defer a.close()

	if runModel != "" {
		providerID, modelID, ok := splitModelRef(runModel)
		if !ok {
			return fmt.Errorf("invalid model reference %q, expected provider/model-id", runModel)
		}
		if err := a.manager.SelectModel(providerID, modelID); err != nil {
			return err
		}
	}

	if runChatID != "" {
		if err := a.manager.SetCurrentChat(runChatID); err != nil {
			return err
		}
	}

	var parts []types.ContentPart
	for _, att := range runAttachments {
		part, err := chat.LoadAttachment(att)
		if err != nil {
			return err
		}
		parts = append(parts, part)
	}

	ctx := context.Background()

	if runStream {
		handle, err := a.manager.SendStream(ctx, args[0], parts...)
		if err != nil {
			return err
		}
		defer handle.Close()

		for {
			fragment, err := handle.Recv()
			if err == io.EOF {
				break
			}
			if err != nil {
				break
			}
			fmt.Print(fragment)
		}
		fmt.Println()
	} else {
		assistant, err := a.manager.Send(ctx, args[0], parts...)
		if err != nil {
			return err
		}
		fmt.Println(assistant.Text())

		if runShowUsage && assistant.TokensUsed != nil {
			fmt.Fprintf(os.Stderr, "tokens: %d", *assistant.TokensUsed)
			if assistant.Cost != nil {
				fmt.Fprintf(os.Stderr, "  cost: $%.6f", *assistant.Cost)
			}
			if assistant.ResponseTime != nil {
				fmt.Fprintf(os.Stderr, "  time: %.2fs", *assistant.ResponseTime)
			}
			fmt.Fprintln(os.Stderr)
		}
	}

	return nil
}
