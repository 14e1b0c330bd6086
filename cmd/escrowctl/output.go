package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/securetransact/escrow-api/internal/core/domain"
	"github.com/securetransact/escrow-api/internal/core/ports"
)

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func newTable(w io.Writer) *tabwriter.Writer {
	return tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
}

func printUser(w io.Writer, u *domain.User) error {
	if jsonOutput {
		return printJSON(w, u)
	}
	tw := newTable(w)
	fmt.Fprintf(tw, "ID\t%s\n", u.ID)
	fmt.Fprintf(tw, "Name\t%s\n", u.Name)
	fmt.Fprintf(tw, "Email\t%s\n", u.Email)
	fmt.Fprintf(tw, "Phone\t%s\n", u.Phone)
	fmt.Fprintf(tw, "Type\t%s\n", u.UserType)
	fmt.Fprintf(tw, "Rating\t%.1f\n", u.Rating)
	fmt.Fprintf(tw, "Joined\t%s\n", u.JoinedDate)
	return tw.Flush()
}

func printTransactions(w io.Writer, txs []*domain.Transaction) error {
	if jsonOutput {
		return printJSON(w, txs)
	}
	tw := newTable(w)
	fmt.Fprintln(tw, "ID\tTITLE\tPRICE\tSTATUS\tBUYER\tSELLER\tUPDATED")
	for _, tx := range txs {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			tx.ID, tx.Title, tx.Price.StringFixed(2), tx.Status, tx.BuyerName, tx.SellerName, tx.LastUpdate)
	}
	return tw.Flush()
}

func printTransaction(w io.Writer, tx *domain.Transaction) error {
	if jsonOutput {
		return printJSON(w, tx)
	}
	tw := newTable(w)
	fmt.Fprintf(tw, "ID\t%s\n", tx.ID)
	fmt.Fprintf(tw, "Title\t%s\n", tx.Title)
	fmt.Fprintf(tw, "Description\t%s\n", tx.Description)
	fmt.Fprintf(tw, "Price\t%s\n", tx.Price.StringFixed(2))
	fmt.Fprintf(tw, "Status\t%s\n", tx.Status)
	fmt.Fprintf(tw, "Buyer\t%s (%s)\n", tx.BuyerName, tx.BuyerID)
	fmt.Fprintf(tw, "Seller\t%s (%s)\n", tx.SellerName, tx.SellerID)
	fmt.Fprintf(tw, "Created\t%s\n", tx.CreatedDate)
	fmt.Fprintf(tw, "Updated\t%s\n", tx.LastUpdate)
	if !tx.ExpectedDelivery.IsZero() {
		fmt.Fprintf(tw, "Expected delivery\t%s\n", tx.ExpectedDelivery)
	}
	fmt.Fprintf(tw, "Inspection period\t%d days\n", tx.InspectionPeriod)
	if tx.DeliveryAddress != "" {
		fmt.Fprintf(tw, "Delivery address\t%s\n", tx.DeliveryAddress)
	}
	if tx.DisputeReason != "" {
		fmt.Fprintf(tw, "Dispute reason\t%s\n", tx.DisputeReason)
	}
	if len(tx.Images) > 0 {
		fmt.Fprintf(tw, "Images\t%s\n", strings.Join(tx.Images, ", "))
	}
	return tw.Flush()
}

func printActions(w io.Writer, view *ports.ActionsView) error {
	if jsonOutput {
		return printJSON(w, view)
	}
	if len(view.Actions) == 0 {
		_, err := fmt.Fprintf(w, "No actions available to the %s.\n", view.Role)
		return err
	}
	names := make([]string, len(view.Actions))
	for i, a := range view.Actions {
		names[i] = string(a)
	}
	_, err := fmt.Fprintf(w, "As %s you can: %s\n", view.Role, strings.Join(names, ", "))
	return err
}

func printMessages(w io.Writer, msgs []*domain.Message) error {
	if jsonOutput {
		return printJSON(w, msgs)
	}
	tw := newTable(w)
	for _, m := range msgs {
		fmt.Fprintf(tw, "%s\t%s\t%s\n", m.Timestamp.Local().Format("2006-01-02 15:04"), senderLabel(m), m.Message)
	}
	return tw.Flush()
}

func senderLabel(m *domain.Message) string {
	if m.Type == domain.MessageSystem {
		return "[" + m.SenderName + "]"
	}
	if m.SenderName != "" {
		return m.SenderName
	}
	return m.SenderID
}

func printConversations(w io.Writer, convs []domain.Conversation) error {
	if jsonOutput {
		return printJSON(w, convs)
	}
	tw := newTable(w)
	fmt.Fprintln(tw, "TRANSACTION\tTITLE\tUNREAD\tLAST MESSAGE")
	for _, c := range convs {
		last := ""
		if c.LastMessage != nil {
			last = c.LastMessage.Message
		}
		fmt.Fprintf(tw, "%s\t%s\t%d\t%s\n", c.Transaction.ID, c.Transaction.Title, c.UnreadCount, last)
	}
	return tw.Flush()
}

func printStats(w io.Writer, s *ports.Stats) error {
	if jsonOutput {
		return printJSON(w, s)
	}
	tw := newTable(w)
	fmt.Fprintf(tw, "Total\t%d\n", s.Total)
	fmt.Fprintf(tw, "Active\t%d\n", s.Active)
	fmt.Fprintf(tw, "Pending\t%d\n", s.Pending)
	fmt.Fprintf(tw, "Completed\t%d\n", s.Completed)
	fmt.Fprintf(tw, "Disputed\t%d\n", s.Disputed)
	return tw.Flush()
}
