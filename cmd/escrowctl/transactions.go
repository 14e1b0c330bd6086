package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/securetransact/escrow-api/internal/client"
	"github.com/securetransact/escrow-api/internal/core/domain"
)

var (
	listAll bool

	createTitle            string
	createDescription      string
	createPrice            string
	createRole             string
	createCounterpartyID   string
	createCounterpartyName string
	createExpected         string
	createInspection       int
	createAddress          string
	createIdempotencyKey   string

	disputeReason string

	txCmd = &cobra.Command{
		Use:     "tx",
		Aliases: []string{"transactions"},
		Short:   "Work with escrow transactions",
	}
	txListCmd = &cobra.Command{
		Use:   "list",
		Short: "List your transactions (or every transaction with --all)",
		RunE:  runTxList,
	}
	txGetCmd = &cobra.Command{
		Use:   "get <id>",
		Short: "Show one transaction",
		Args:  cobra.ExactArgs(1),
		RunE:  runTxGet,
	}
	txCreateCmd = &cobra.Command{
		Use:   "create",
		Short: "Create a transaction as buyer or seller",
		RunE:  runTxCreate,
	}
	txStatusCmd = &cobra.Command{
		Use:   "status <id> <status>",
		Short: "Overwrite the status of a transaction",
		Args:  cobra.ExactArgs(2),
		RunE:  runTxStatus,
	}
	txActionsCmd = &cobra.Command{
		Use:   "actions <id>",
		Short: "Show the actions you can take on a transaction",
		Args:  cobra.ExactArgs(1),
		RunE:  runTxActions,
	}
	txActCmd = &cobra.Command{
		Use:   "act <id> <action>",
		Short: "Take an action: accept, pay, ship, confirm_delivery, approve, dispute, cancel",
		Args:  cobra.ExactArgs(2),
		RunE:  runTxAct,
	}
	txUploadCmd = &cobra.Command{
		Use:   "upload <id> <file>",
		Short: "Attach an image to a transaction",
		Args:  cobra.ExactArgs(2),
		RunE:  runTxUpload,
	}
)

func init() {
	txListCmd.Flags().BoolVar(&listAll, "all", false, "list every transaction, not only yours")

	f := txCreateCmd.Flags()
	f.StringVar(&createTitle, "title", "", "item title")
	f.StringVar(&createDescription, "description", "", "item description")
	f.StringVar(&createPrice, "price", "", "price, e.g. 850.00")
	f.StringVar(&createRole, "as", string(domain.UserTypeBuyer), "your role in the deal: buyer or seller")
	f.StringVar(&createCounterpartyID, "counterparty-id", "", "user id of the other party (placeholder when empty)")
	f.StringVar(&createCounterpartyName, "counterparty-name", "", "name of the other party")
	f.StringVar(&createExpected, "expected-delivery", "", "expected delivery date (YYYY-MM-DD)")
	f.IntVar(&createInspection, "inspection-days", 3, "inspection period in days")
	f.StringVar(&createAddress, "address", "", "delivery address")
	f.StringVar(&createIdempotencyKey, "idempotency-key", "", "reuse to retry safely (generated when empty)")
	_ = txCreateCmd.MarkFlagRequired("title")
	_ = txCreateCmd.MarkFlagRequired("description")
	_ = txCreateCmd.MarkFlagRequired("price")

	txStatusCmd.Flags().StringVar(&disputeReason, "reason", "", "dispute reason")
	txActCmd.Flags().StringVar(&disputeReason, "reason", "", "dispute reason (required for dispute)")

	txCmd.AddCommand(txListCmd, txGetCmd, txCreateCmd, txStatusCmd, txActionsCmd, txActCmd, txUploadCmd)
}

func runTxList(cmd *cobra.Command, _ []string) error {
	e, err := connect(cmd.Context(), true)
	if err != nil {
		return err
	}
	var txs []*domain.Transaction
	if listAll {
		txs, err = e.client.ListTransactions(cmd.Context())
	} else {
		txs, err = e.client.ListUserTransactions(cmd.Context(), e.session.UserID)
	}
	if err != nil {
		return err
	}
	return printTransactions(cmd.OutOrStdout(), txs)
}

func runTxGet(cmd *cobra.Command, args []string) error {
	e, err := connect(cmd.Context(), true)
	if err != nil {
		return err
	}
	tx, err := e.client.GetTransaction(cmd.Context(), args[0])
	if err != nil {
		return err
	}
	return printTransaction(cmd.OutOrStdout(), tx)
}

func runTxCreate(cmd *cobra.Command, _ []string) error {
	e, err := connect(cmd.Context(), true)
	if err != nil {
		return err
	}
	req, err := buildCreateRequest(e.session)
	if err != nil {
		return err
	}
	key := createIdempotencyKey
	if key == "" {
		key = uuid.NewString()
	}
	tx, err := e.client.CreateTransaction(cmd.Context(), req, key)
	if err != nil {
		return err
	}
	return printTransaction(cmd.OutOrStdout(), tx)
}

// buildCreateRequest places the logged-in user on the side given by --as and
// the counterparty on the other.
func buildCreateRequest(sess *session) (client.CreateTransactionRequest, error) {
	req := client.CreateTransactionRequest{
		Title:            createTitle,
		Description:      createDescription,
		Price:            createPrice,
		Status:           domain.StatusPendingAcceptance,
		ExpectedDelivery: createExpected,
		InspectionPeriod: createInspection,
		DeliveryAddress:  createAddress,
	}
	switch domain.UserType(createRole) {
	case domain.UserTypeBuyer:
		req.BuyerID, req.BuyerName = sess.UserID, sess.Name
		req.SellerID, req.SellerName = createCounterpartyID, createCounterpartyName
	case domain.UserTypeSeller:
		req.SellerID, req.SellerName = sess.UserID, sess.Name
		req.BuyerID, req.BuyerName = createCounterpartyID, createCounterpartyName
	default:
		return req, fmt.Errorf("--as must be buyer or seller, got %q", createRole)
	}
	return req, nil
}

func runTxStatus(cmd *cobra.Command, args []string) error {
	e, err := connect(cmd.Context(), true)
	if err != nil {
		return err
	}
	tx, err := e.client.UpdateStatus(cmd.Context(), args[0], domain.TransactionStatus(args[1]), disputeReason)
	if err != nil {
		return err
	}
	return printTransaction(cmd.OutOrStdout(), tx)
}

func runTxActions(cmd *cobra.Command, args []string) error {
	e, err := connect(cmd.Context(), true)
	if err != nil {
		return err
	}
	view, err := e.client.Actions(cmd.Context(), args[0])
	if err != nil {
		return err
	}
	return printActions(cmd.OutOrStdout(), view)
}

func runTxAct(cmd *cobra.Command, args []string) error {
	e, err := connect(cmd.Context(), true)
	if err != nil {
		return err
	}
	tx, err := e.client.ApplyAction(cmd.Context(), args[0], domain.Action(args[1]), disputeReason)
	if err != nil {
		return err
	}
	return printTransaction(cmd.OutOrStdout(), tx)
}

func runTxUpload(cmd *cobra.Command, args []string) error {
	f, err := os.Open(args[1])
	if err != nil {
		return err
	}
	defer f.Close()

	e, err := connect(cmd.Context(), true)
	if err != nil {
		return err
	}
	tx, err := e.client.UploadImage(cmd.Context(), args[0], filepath.Base(args[1]), f)
	if err != nil {
		return err
	}
	return printTransaction(cmd.OutOrStdout(), tx)
}
