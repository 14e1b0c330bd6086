package main

import (
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/securetransact/escrow-api/internal/client"
)

var (
	msgCmd = &cobra.Command{
		Use:     "msg",
		Aliases: []string{"messages"},
		Short:   "Read and post transaction chat messages",
	}
	msgListCmd = &cobra.Command{
		Use:   "list <transaction-id>",
		Short: "Show the chat of a transaction, oldest first",
		Args:  cobra.ExactArgs(1),
		RunE:  runMsgList,
	}
	msgSendCmd = &cobra.Command{
		Use:   "send <transaction-id> <text...>",
		Short: "Post a message to a transaction chat",
		Args:  cobra.MinimumNArgs(2),
		RunE:  runMsgSend,
	}
)

func init() {
	msgCmd.AddCommand(msgListCmd, msgSendCmd)
}

func runMsgList(cmd *cobra.Command, args []string) error {
	e, err := connect(cmd.Context(), true)
	if err != nil {
		return err
	}
	msgs, err := e.client.ListMessages(cmd.Context(), args[0])
	if err != nil {
		return err
	}
	return printMessages(cmd.OutOrStdout(), msgs)
}

func runMsgSend(cmd *cobra.Command, args []string) error {
	e, err := connect(cmd.Context(), true)
	if err != nil {
		return err
	}
	msg, err := e.client.SendMessage(cmd.Context(), client.SendMessageRequest{
		TransactionID: args[0],
		SenderID:      e.session.UserID,
		SenderName:    e.session.Name,
		Message:       strings.Join(args[1:], " "),
	}, uuid.NewString())
	if err != nil {
		return err
	}
	if jsonOutput {
		return printJSON(cmd.OutOrStdout(), msg)
	}
	return nil
}
