package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/mkravets/unimarket/internal/model"
	"github.com/mkravets/unimarket/internal/ui"
)

var chatCmd = &cobra.Command{
	Use:     "chat",
	GroupID: "market",
	Short:   "Read and send chat messages",
}

var chatShowCmd = &cobra.Command{
	Use:   "show <conversation-id>",
	Short: "Show a conversation",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp()
		if err != nil {
			return err
		}
		defer a.close()

		messages, err := a.repo.Conversation(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		if len(messages) == 0 {
			fmt.Println(ui.RenderMuted("No messages."))
			return nil
		}

		for _, m := range messages {
			stamp := ui.RenderMuted(m.SentAt.Format(time.RFC3339))
			sender := m.SenderID
			if sender == a.cfg.UserID {
				sender = ui.RenderAccent("me")
			}
			line := fmt.Sprintf("%s  %s: %s", stamp, sender, m.Body)
			if m.Status == model.MessagePending {
				line += "  " + ui.RenderWarn("(sending)")
			}
			fmt.Println(line)
		}
		return nil
	},
}

var chatSendCmd = &cobra.Command{
	Use:   "send <recipient-id> <body...>",
	Short: "Send a message",
	Long: `Send a chat message to another user.

The message appears in the conversation at once and uploads on the next
sync.`,
	Args: cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp()
		if err != nil {
			return err
		}
		defer a.close()

		if a.cfg.UserID == "" {
			return fmt.Errorf("user_id must be configured to chat")
		}

		msg := model.Message{
			SenderID:    a.cfg.UserID,
			RecipientID: args[0],
			Body:        strings.Join(args[1:], " "),
		}
		id, err := a.repo.SendMessage(cmd.Context(), msg)
		if err != nil {
			return err
		}

		fmt.Printf("%s Message %s queued\n", ui.RenderSuccess("✓"), id)
		return nil
	},
}

func init() {
	chatCmd.AddCommand(chatShowCmd)
	chatCmd.AddCommand(chatSendCmd)
	rootCmd.AddCommand(chatCmd)
}
