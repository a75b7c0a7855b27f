package commands

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

var chatsCmd = &cobra.Command{
	Use:   "chats",
	Short: "Manage chat history",
	Run: func(cmd *cobra.Command, args []string) {
		cmd.Help()
	},
}

var chatsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List chats, most recently active first",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := bootstrap()
		if err != nil {
			return err
		}
		defer a.close()

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		defer w.Flush()

		fmt.Fprintln(w, "ID\tNAME\tMESSAGES\tLAST ACTIVE\t")
		for _, c := range a.manager.Chats() {
			fmt.Fprintf(w, "%s\t%s\t%d\t%s\t\n", c.ID, c.Name, len(c.Messages), c.LastActive.Format("2006-01-02 15:04"))
		}
		return nil
	},
}

var chatsRenameCmd = &cobra.Command{
	Use:   "rename <chat-id> <new-name>",
	Short: "Rename a chat",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := bootstrap()
		if err != nil {
			return err
		}
		defer a.close()

		if err := a.manager.RenameChat(context.Background(), args[0], args[1]); err != nil {
			return err
		}
		fmt.Printf("renamed %s to %q\n", args[0], args[1])
		return nil
	},
}

var chatsDeleteCmd = &cobra.Command{
	Use:   "delete <chat-id>",
	Short: "Delete a chat permanently",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := bootstrap()
		if err != nil {
			return err
		}
		defer a.close()

		if err := a.manager.DeleteChat(context.Background(), args[0]); err != nil {
			return err
		}
		fmt.Printf("deleted %s\n", args[0])
		return nil
	},
}

var chatsShowCmd = &cobra.Command{
	Use:   "show <chat-id>",
	Short: "Print a chat transcript",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := bootstrap()
		if err != nil {
			return err
		}
		defer a.close()

		c := a.manager.GetChat(args[0])
		if c == nil {
			return fmt.Errorf("chat not found: %s", args[0])
		}

		fmt.Printf("%s (%s)\n\n", c.Name, c.ID)
		for _, msg := range c.Messages {
			fmt.Printf("[%s] %s\n", msg.Role, msg.Text())
		}
		return nil
	},
}

func init() {
	chatsCmd.AddCommand(chatsListCmd)
	chatsCmd.AddCommand(chatsRenameCmd)
	chatsCmd.AddCommand(chatsDeleteCmd)
	chatsCmd.AddCommand(chatsShowCmd)
}
