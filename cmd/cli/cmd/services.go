// Package cmd - services and price commands
package cmd

import (
	"strings"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"research-planner/core/pricing"
	"research-planner/core/types"
	"research-planner/internal/errors"
	"research-planner/internal/logging"
)

var (
	servicesTier string
	priceSubsidy string
)

// servicesCmd lists catalog services
var servicesCmd = &cobra.Command{
	Use:   "services",
	Short: "List services, optionally those eligible for a tier",
	Long: `List the services of the catalog with a one-line pricing summary.

Examples:
  research-planner services
  research-planner services --tier internal`,
	Args: cobra.NoArgs,
	RunE: runServices,
}

// priceCmd evaluates a cost model
var priceCmd = &cobra.Command{
	Use:   "price <service> <quantity>",
	Short: "Price a quantity of a service",
	Long: `Evaluate the cost model of a service for a monthly quantity, applying
automatic subsidies and an optional opt-in subsidy.

Examples:
  research-planner price hpc-storage 25
  research-planner price hpc-cpu 120000 --subsidy startup`,
	Args: cobra.ExactArgs(2),
	RunE: runPrice,
}

func init() {
	servicesCmd.Flags().StringVarP(&servicesTier, "tier", "t", "", "only list services eligible for this tier")
	priceCmd.Flags().StringVar(&priceSubsidy, "subsidy", "", "opt-in subsidy slug")
}

func runServices(cmd *cobra.Command, args []string) error {
	cat, err := loadCatalog("")
	if err != nil {
		return err
	}

	services := cat.Services
	title := "Services"
	var tier *types.Tier
	if servicesTier != "" {
		t, ok := cat.Tier(servicesTier)
		if !ok {
			return errors.NotFound("tier", servicesTier)
		}
		tier = t
		services = cat.ServicesForTier(servicesTier)
		title = "Services for " + t.Name
	}

	if jsonOutput() {
		return printJSON(cmd.OutOrStdout(), services)
	}

	w := writer(cmd)
	w.Services(title, services)
	if tier != nil && tier.ConsultationRequired {
		w.Line("")
		w.Warning("%s data requires a consultation before services can be requested", tier.Name)
	}
	return nil
}

// parseQuantity parses a positive decimal quantity
func parseQuantity(s string) (decimal.Decimal, error) {
	q, err := decimal.NewFromString(strings.TrimSpace(strings.ReplaceAll(s, ",", "")))
	if err != nil {
		return decimal.Zero, errors.Wrapf(errors.TypeInput, err, "invalid quantity %q", s)
	}
	if !q.IsPositive() {
		return decimal.Zero, errors.Newf(errors.TypeInput, "quantity must be positive, got %s", s)
	}
	return q, nil
}

func runPrice(cmd *cobra.Command, args []string) error {
	cat, err := loadCatalog("")
	if err != nil {
		return err
	}

	svc, ok := cat.Service(args[0])
	if !ok {
		return errors.NotFound("service", args[0])
	}
	qty, err := parseQuantity(args[1])
	if err != nil {
		return err
	}
	if priceSubsidy != "" {
		if _, ok := svc.OptInSubsidy(priceSubsidy); !ok {
			return errors.NotFound("subsidy", priceSubsidy).WithContext("service", svc.Slug)
		}
	}

	est := pricing.Evaluate(svc, qty, priceSubsidy)
	logging.Debug("priced",
		zap.String("service", svc.Slug),
		zap.String("quantity", qty.String()),
		zap.String("monthly", est.Monthly.String()))

	if jsonOutput() {
		return printJSON(cmd.OutOrStdout(), est)
	}
	writer(cmd).Estimate(svc, qty, est)
	return nil
}
