package main

import (
	"fmt"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/goliatone/go-boarding/pkg/gateway"
)

func customersCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "customers",
		Short: "Manage customers of the configured entry point",
	}
	cmd.AddCommand(customersListCmd(a))
	cmd.AddCommand(customersCreateCmd(a))
	cmd.AddCommand(customersDeleteCmd(a))
	return cmd
}

func customersListCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List customers",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			client, err := a.gateway()
			if err != nil {
				return err
			}
			customers, err := client.ListCustomers(cmd.Context())
			if err != nil {
				return err
			}
			tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tNAME\tEMAIL\tCITY")
			for _, c := range customers {
				name := strings.TrimSpace(c.Firstname + " " + c.Lastname)
				city := c.City
				if c.State != "" {
					city += ", " + c.State
				}
				fmt.Fprintf(tw, "%d\t%s\t%s\t%s\n", c.CustomerID, name, c.Email, city)
			}
			return tw.Flush()
		},
	}
}

func customersCreateCmd(a *app) *cobra.Command {
	var c gateway.Customer
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a customer",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if strings.TrimSpace(c.Firstname) == "" || strings.TrimSpace(c.Lastname) == "" {
				return fmt.Errorf("--first-name and --last-name are required")
			}
			client, err := a.gateway()
			if err != nil {
				return err
			}
			resp, err := client.AddCustomer(cmd.Context(), c)
			if err != nil {
				return err
			}
			fmt.Fprintln(a.out, string(resp))
			return nil
		},
	}
	flags := cmd.Flags()
	flags.StringVar(&c.Firstname, "first-name", "", "first name")
	flags.StringVar(&c.Lastname, "last-name", "", "last name")
	flags.StringVar(&c.Email, "email", "", "email address")
	flags.StringVar(&c.CustomerNumber, "number", "", "customer number")
	flags.StringVar(&c.Address, "address", "", "street address")
	flags.StringVar(&c.City, "city", "", "city")
	flags.StringVar(&c.State, "state", "", "state or province")
	flags.StringVar(&c.Zip, "zip", "", "postal code")
	flags.StringVar(&c.Country, "country", "US", "country code")
	return cmd
}

func customersDeleteCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <customer-id>",
		Short: "Delete a customer",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil || id <= 0 {
				return fmt.Errorf("invalid customer id %q", args[0])
			}
			client, err := a.gateway()
			if err != nil {
				return err
			}
			if err := client.DeleteCustomer(cmd.Context(), id); err != nil {
				return err
			}
			fmt.Fprintf(a.out, "customer %d deleted\n", id)
			return nil
		},
	}
}

func payCmd(a *app) *cobra.Command {
	var (
		req    gateway.TokenRequest
		amount string
		p      gateway.Payment
	)
	cmd := &cobra.Command{
		Use:   "pay <token>",
		Short: "Store a tokenized card and charge it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			value, err := decimal.NewFromString(amount)
			if err != nil {
				return fmt.Errorf("invalid amount %q: %w", amount, err)
			}
			client, err := a.gateway()
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			req.TokenID = strings.TrimSpace(args[0])
			stored, err := client.ConvertToken(ctx, req)
			if err != nil {
				return err
			}
			p.StoredMethodID = stored
			p.Amount = value
			p.CustomerID = req.CustomerID
			reference, err := client.GetPaid(ctx, p)
			if err != nil {
				return err
			}
			fmt.Fprintf(a.out, "stored method: %s\nreference: %s\n", stored, reference)
			if txns, err := client.QueryTransactions(ctx, reference); err != nil {
				a.logger.Warn().Err(err).Str("reference", reference).Msg("query transactions")
			} else {
				fmt.Fprintln(a.out, string(txns))
			}
			return nil
		},
	}
	flags := cmd.Flags()
	flags.Int64Var(&req.CustomerID, "customer", 0, "customer id the card belongs to")
	flags.StringVar(&req.Description, "description", "", "stored method description")
	flags.StringVar(&amount, "amount", "20", "amount to charge")
	flags.StringVar(&p.CustomerNumber, "customer-number", "", "customer number")
	flags.StringVar(&p.BillingAddress1, "billing-address", "", "billing address line")
	flags.StringVar(&p.IdempotencyKey, "idempotency-key", "", "idempotency key (random when empty)")
	return cmd
}
