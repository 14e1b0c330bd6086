package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/securetransact/escrow-api/internal/client"
	"github.com/securetransact/escrow-api/internal/core/domain"
)

var (
	regEmail    string
	regPassword string
	regName     string
	regPhone    string
	regType     string

	loginEmail    string
	loginPassword string

	profileEmail string
	profileName  string
	profilePhone string
	profileType  string

	conversationQuery string

	registerCmd = &cobra.Command{
		Use:   "register",
		Short: "Create an account and log in",
		RunE:  runRegister,
	}
	loginCmd = &cobra.Command{
		Use:   "login",
		Short: "Log in and save the session",
		RunE:  runLogin,
	}
	logoutCmd = &cobra.Command{
		Use:   "logout",
		Short: "Forget the saved session",
		RunE:  runLogout,
	}
	whoamiCmd = &cobra.Command{
		Use:   "whoami",
		Short: "Show the logged-in user's profile",
		RunE:  runWhoami,
	}
	profileCmd = &cobra.Command{
		Use:   "profile",
		Short: "Update the logged-in user's profile",
		RunE:  runProfile,
	}
	statsCmd = &cobra.Command{
		Use:   "stats [user-id]",
		Short: "Show dashboard counters (defaults to the logged-in user)",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runStats,
	}
	conversationsCmd = &cobra.Command{
		Use:     "conversations",
		Aliases: []string{"inbox"},
		Short:   "List chat conversations of the logged-in user",
		RunE:    runConversations,
	}
	healthCmd = &cobra.Command{
		Use:   "health",
		Short: "Check API liveness and storage readiness",
		RunE:  runHealth,
	}
)

func init() {
	registerCmd.Flags().StringVar(&regEmail, "email", "", "email address")
	registerCmd.Flags().StringVar(&regPassword, "password", "", "password (at least 6 characters)")
	registerCmd.Flags().StringVar(&regName, "name", "", "full name")
	registerCmd.Flags().StringVar(&regPhone, "phone", "", "phone number")
	registerCmd.Flags().StringVar(&regType, "type", string(domain.UserTypeBoth), "account type: buyer, seller or both")
	_ = registerCmd.MarkFlagRequired("email")
	_ = registerCmd.MarkFlagRequired("password")
	_ = registerCmd.MarkFlagRequired("name")

	loginCmd.Flags().StringVar(&loginEmail, "email", "", "email address")
	loginCmd.Flags().StringVar(&loginPassword, "password", "", "password")
	_ = loginCmd.MarkFlagRequired("email")
	_ = loginCmd.MarkFlagRequired("password")

	profileCmd.Flags().StringVar(&profileEmail, "email", "", "new email address")
	profileCmd.Flags().StringVar(&profileName, "name", "", "new name")
	profileCmd.Flags().StringVar(&profilePhone, "phone", "", "new phone number")
	profileCmd.Flags().StringVar(&profileType, "type", "", "new account type")

	conversationsCmd.Flags().StringVarP(&conversationQuery, "query", "q", "", "filter by title or last message")
}

func runRegister(cmd *cobra.Command, _ []string) error {
	e, err := connect(cmd.Context(), false)
	if err != nil {
		return err
	}
	res, err := e.client.Register(cmd.Context(), client.RegisterRequest{
		Email:    regEmail,
		Password: regPassword,
		Name:     regName,
		Phone:    regPhone,
		UserType: domain.UserType(regType),
	})
	if err != nil {
		return err
	}
	return finishLogin(cmd, e, res)
}

func runLogin(cmd *cobra.Command, _ []string) error {
	e, err := connect(cmd.Context(), false)
	if err != nil {
		return err
	}
	res, err := e.client.Login(cmd.Context(), loginEmail, loginPassword)
	if err != nil {
		return err
	}
	return finishLogin(cmd, e, res)
}

func finishLogin(cmd *cobra.Command, e *env, res *client.AuthResponse) error {
	sess := &session{
		BaseURL: e.client.BaseURL(),
		Token:   res.Token,
		UserID:  res.User.ID,
		Email:   res.User.Email,
		Name:    res.User.Name,
	}
	if err := saveSession(e.cfg.SessionFile, sess); err != nil {
		return err
	}
	if jsonOutput {
		return printJSON(cmd.OutOrStdout(), res)
	}
	_, err := fmt.Fprintf(cmd.OutOrStdout(), "Logged in as %s <%s> on %s\n", res.User.Name, res.User.Email, sess.BaseURL)
	return err
}

func runLogout(cmd *cobra.Command, _ []string) error {
	e, err := connect(cmd.Context(), false)
	if err != nil {
		return err
	}
	return clearSession(e.cfg.SessionFile)
}

func runWhoami(cmd *cobra.Command, _ []string) error {
	e, err := connect(cmd.Context(), true)
	if err != nil {
		return err
	}
	user, err := e.client.GetUser(cmd.Context(), e.session.UserID)
	if err != nil {
		return err
	}
	return printUser(cmd.OutOrStdout(), user)
}

func runProfile(cmd *cobra.Command, _ []string) error {
	var update client.UserUpdate
	flags := cmd.Flags()
	if flags.Changed("email") {
		update.Email = &profileEmail
	}
	if flags.Changed("name") {
		update.Name = &profileName
	}
	if flags.Changed("phone") {
		update.Phone = &profilePhone
	}
	if flags.Changed("type") {
		t := domain.UserType(profileType)
		update.UserType = &t
	}
	if update == (client.UserUpdate{}) {
		return errors.New("nothing to update; pass at least one of --email, --name, --phone, --type")
	}

	e, err := connect(cmd.Context(), true)
	if err != nil {
		return err
	}
	user, err := e.client.UpdateUser(cmd.Context(), e.session.UserID, update)
	if err != nil {
		return err
	}
	if user.Email != e.session.Email || user.Name != e.session.Name {
		e.session.Email, e.session.Name = user.Email, user.Name
		if err := saveSession(e.cfg.SessionFile, e.session); err != nil {
			return err
		}
	}
	return printUser(cmd.OutOrStdout(), user)
}

func runStats(cmd *cobra.Command, args []string) error {
	e, err := connect(cmd.Context(), true)
	if err != nil {
		return err
	}
	userID := e.session.UserID
	if len(args) == 1 {
		userID = args[0]
	}
	stats, err := e.client.Stats(cmd.Context(), userID)
	if err != nil {
		return err
	}
	return printStats(cmd.OutOrStdout(), stats)
}

func runConversations(cmd *cobra.Command, _ []string) error {
	e, err := connect(cmd.Context(), true)
	if err != nil {
		return err
	}
	convs, err := e.client.Conversations(cmd.Context(), e.session.UserID, conversationQuery)
	if err != nil {
		return err
	}
	return printConversations(cmd.OutOrStdout(), convs)
}

func runHealth(cmd *cobra.Command, _ []string) error {
	e, err := connect(cmd.Context(), false)
	if err != nil {
		return err
	}
	health, err := e.client.Health(cmd.Context())
	if err != nil {
		return err
	}
	ready, readyErr := e.client.Ready(cmd.Context())
	if ready == nil {
		return readyErr
	}

	out := cmd.OutOrStdout()
	if jsonOutput {
		if err := printJSON(out, map[string]any{"health": health, "readiness": ready}); err != nil {
			return err
		}
		return readyErr
	}
	tw := newTable(out)
	fmt.Fprintf(tw, "Server\t%s\n", e.client.BaseURL())
	fmt.Fprintf(tw, "Status\t%s\n", health.Status)
	fmt.Fprintf(tw, "Storage\t%s\n", health.Storage)
	for name, dep := range ready.Dependencies {
		line := dep.Status
		if dep.Error != "" {
			line += " (" + dep.Error + ")"
		}
		fmt.Fprintf(tw, "%s\t%s\n", name, line)
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	return readyErr
}
