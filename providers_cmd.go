package main

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/dgnsrekt/ttsconsole/internal/gateway"
	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
)

var (
	providersCmd = &cobra.Command{
		Use:   "providers",
		Short: "List and manage the providers configured on the gateway",
		Example: paragraph("ttsconsole providers\nttsconsole providers --gateway http://tts.internal:8080\n" +
			"ttsconsole providers add --name qwen --type QWEN --access-key $KEY"),
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := newApp(false)
			if err != nil {
				return err
			}

			providers, err := a.client.Providers(cmd.Context())
			if err != nil {
				return fmt.Errorf("unable to list providers: %w", err)
			}
			renderProviders(cmd.OutOrStdout(), providers)
			return nil
		},
	}

	providersGetCmd = &cobra.Command{
		Use:   "get ID",
		Short: "Show one provider configuration",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(false)
			if err != nil {
				return err
			}

			p, err := a.client.Provider(cmd.Context(), args[0])
			if err != nil {
				return fmt.Errorf("unable to fetch provider: %w", err)
			}
			renderProvider(cmd.OutOrStdout(), p)
			return nil
		},
	}

	providersAddCmd = &cobra.Command{
		Use:     "add",
		Short:   "Add a provider configuration",
		Example: paragraph("ttsconsole providers add --name aliyun --type ALIYUN --access-key AK --secret-key SK"),
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := newApp(false)
			if err != nil {
				return err
			}

			p, err := a.client.CreateProvider(cmd.Context(), providerFromFlags(cmd))
			if err != nil {
				return fmt.Errorf("unable to add provider: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), successStyle.Render(fmt.Sprintf("Added provider %s (%s).", p.Hint(), p.ID)))
			return nil
		},
	}

	providersUpdateCmd = &cobra.Command{
		Use:     "update ID",
		Short:   "Change a provider configuration",
		Long:    paragraph("\nOnly the flags you pass are changed."),
		Example: paragraph("ttsconsole providers update 0b6f... --active=false"),
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p := providerFromFlags(cmd)
			if p == (gateway.Provider{}) {
				return errors.New("nothing to update, pass at least one flag")
			}

			a, err := newApp(false)
			if err != nil {
				return err
			}

			p, err = a.client.UpdateProvider(cmd.Context(), args[0], p)
			if err != nil {
				return fmt.Errorf("unable to update provider: %w", err)
			}
			renderProvider(cmd.OutOrStdout(), p)
			return nil
		},
	}

	providersDeleteCmd = &cobra.Command{
		Use:     "delete ID",
		Aliases: []string{"rm"},
		Short:   "Remove a provider configuration",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(false)
			if err != nil {
				return err
			}

			if err := a.client.DeleteProvider(cmd.Context(), args[0]); err != nil {
				return fmt.Errorf("unable to delete provider: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), successStyle.Render("Deleted provider "+args[0]+"."))
			return nil
		},
	}
)

func init() {
	addProviderFlags(providersAddCmd)
	addProviderFlags(providersUpdateCmd)
	providersCmd.AddCommand(providersGetCmd, providersAddCmd, providersUpdateCmd, providersDeleteCmd)
}

func addProviderFlags(c *cobra.Command) {
	c.Flags().String("name", "", "provider name, used as the request hint")
	c.Flags().String("type", "", "provider type, e.g. ALIYUN, AWS, TENCENT, VIBEVOICE, QWEN")
	c.Flags().String("base-url", "", "provider endpoint")
	c.Flags().String("access-key", "", "provider access key")
	c.Flags().String("secret-key", "", "provider secret key")
	c.Flags().String("metadata", "", "additional settings as a JSON object")
	c.Flags().Bool("active", true, "enable the provider")
}

// providerFromFlags collects the provider flags that were set.
func providerFromFlags(cmd *cobra.Command) gateway.Provider {
	flags := cmd.Flags()
	str := func(name string) string {
		v, _ := flags.GetString(name)
		return strings.TrimSpace(v)
	}

	p := gateway.Provider{
		Name:         str("name"),
		ProviderType: strings.ToUpper(str("type")),
		BaseURL:      str("base-url"),
		AccessKey:    str("access-key"),
		SecretKey:    str("secret-key"),
		Metadata:     str("metadata"),
	}
	if flags.Changed("active") {
		active, _ := flags.GetBool("active")
		p.IsActive = &active
	}
	return p
}

// renderProvider prints one configuration. Keys are masked.
func renderProvider(w io.Writer, p gateway.Provider) {
	active := "yes"
	if !p.Active() {
		active = "no"
	}
	rows := [][]string{
		{"ID", p.ID},
		{"NAME", p.Name},
		{"TYPE", p.ProviderType},
		{"ACTIVE", active},
		{"BASE URL", p.BaseURL},
		{"ACCESS KEY", mask(p.AccessKey)},
		{"SECRET KEY", mask(p.SecretKey)},
		{"METADATA", p.Metadata},
	}
	fmt.Fprintln(w, newTable().Rows(rows...).Render())
}

func mask(s string) string {
	if s == "" {
		return ""
	}
	if len(s) <= 4 {
		return "****"
	}
	return "****" + s[len(s)-4:]
}

func renderProviders(w io.Writer, providers []gateway.Provider) {
	if len(providers) == 0 {
		fmt.Fprintln(w, subtleStyle.Render("No providers configured."))
		return
	}

	rows := make([][]string, 0, len(providers))
	for _, p := range providers {
		active := "yes"
		if !p.Active() {
			active = "no"
		}
		rows = append(rows, []string{p.Hint(), p.ProviderType, active, p.BaseURL})
	}

	t := newTable().
		Headers("PROVIDER", "TYPE", "ACTIVE", "BASE URL").
		Rows(rows...)
	fmt.Fprintln(w, t.Render())
	fmt.Fprintln(w, subtleStyle.Render(humanize.Comma(int64(len(providers)))+" providers"))
}

func newTable() *table.Table {
	return table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(subtleStyle).
		StyleFunc(func(row, _ int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			return cellStyle
		})
}
