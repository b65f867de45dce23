// Package cmd - slate commands
package cmd

import (
	"os"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"research-planner/adapters/storage"
	"research-planner/core/slate"
	"research-planner/core/ui"
	"research-planner/internal/config"
	"research-planner/internal/errors"
)

var (
	slateSubsidy      string
	slateSeparate     bool
	slateNotes        string
	slateArchiveRatio float64
	slateWithArchive  bool

	softwareLicense string
	softwareNote    string

	submitRequestID  string
	submitFunding    string
	submitContact    string
	submitEmail      string
	submitDepartment string
	submitTimeline   string
	submitNotes      string

	exportOut string
)

// slateCmd manages the persisted request slate
var slateCmd = &cobra.Command{
	Use:   "slate",
	Short: "Manage the request slate of a session",
	Long: `The slate collects the services a project will request. It is saved per
session (--session) so it survives between invocations.

Item ids may be abbreviated to any unique prefix.`,
}

var slateShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the slate with its totals",
	Args:  cobra.NoArgs,
	RunE:  runSlateShow,
}

var slateListCmd = &cobra.Command{
	Use:   "list",
	Short: "List saved sessions",
	Args:  cobra.NoArgs,
	RunE:  runSlateList,
}

var slateAddCmd = &cobra.Command{
	Use:   "add <service> <quantity>",
	Short: "Add a quantity of a service",
	Long: `Add a quantity of a service. If the service is already on the slate the
quantities are merged and re-priced at the total unless --separate is given.`,
	Args: cobra.ExactArgs(2),
	RunE: runSlateAdd,
}

var slateRemoveCmd = &cobra.Command{
	Use:   "remove <item>",
	Short: "Remove an item",
	Args:  cobra.ExactArgs(1),
	RunE:  runSlateRemove,
}

var slateQtyCmd = &cobra.Command{
	Use:   "qty <item> <quantity>",
	Short: "Change the quantity of an item",
	Args:  cobra.ExactArgs(2),
	RunE:  runSlateQty,
}

var slateNotesCmd = &cobra.Command{
	Use:   "notes <item> <text>",
	Short: "Replace the notes of an item",
	Args:  cobra.ExactArgs(2),
	RunE:  runSlateNotes,
}

var slateSoftwareCmd = &cobra.Command{
	Use:   "software",
	Short: "Add or remove requested software",
}

var slateSoftwareAddCmd = &cobra.Command{
	Use:   "add <id>",
	Short: "Request a software package",
	Args:  cobra.ExactArgs(1),
	RunE:  runSoftwareAdd,
}

var slateSoftwareRemoveCmd = &cobra.Command{
	Use:   "remove <id>",
	Short: "Drop a software package",
	Args:  cobra.ExactArgs(1),
	RunE:  runSoftwareRemove,
}

var slateProjectCmd = &cobra.Command{
	Use:   "project <name>",
	Short: "Set the project name",
	Args:  cobra.ExactArgs(1),
	RunE:  runSlateProject,
}

var slateSubmitCmd = &cobra.Command{
	Use:   "submit",
	Short: "Mark the slate as submitted",
	Args:  cobra.NoArgs,
	RunE:  runSlateSubmit,
}

var slateDraftCmd = &cobra.Command{
	Use:   "draft",
	Short: "Move a submitted slate back to draft for editing",
	Args:  cobra.NoArgs,
	RunE:  runSlateDraft,
}

var slateRepriceCmd = &cobra.Command{
	Use:   "reprice",
	Short: "Re-price every item against the current catalog",
	Args:  cobra.NoArgs,
	RunE:  runSlateReprice,
}

var slateExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export the slate as JSON",
	Args:  cobra.NoArgs,
	RunE:  runSlateExport,
}

var slateWipeCmd = &cobra.Command{
	Use:   "wipe",
	Short: "Replace the slate with an empty draft",
	Args:  cobra.NoArgs,
	RunE:  runSlateWipe,
}

var slateDeleteCmd = &cobra.Command{
	Use:   "delete",
	Short: "Delete the saved session",
	Args:  cobra.NoArgs,
	RunE:  runSlateDelete,
}

func init() {
	slateAddCmd.Flags().StringVar(&slateSubsidy, "subsidy", "", "opt-in subsidy slug")
	slateAddCmd.Flags().BoolVar(&slateSeparate, "separate", false, "add as a new item instead of merging")
	slateAddCmd.Flags().StringVar(&slateNotes, "notes", "", "item notes")
	slateAddCmd.Flags().BoolVar(&slateWithArchive, "archive", false, "also add an archive allocation")
	slateAddCmd.Flags().Float64Var(&slateArchiveRatio, "archive-ratio", 0, "archive size as a fraction of the quantity (default: the service's ratio)")

	slateSoftwareAddCmd.Flags().StringVar(&softwareLicense, "license", slate.DefaultLicenseModel, "license model")
	slateSoftwareAddCmd.Flags().StringVar(&softwareNote, "note", "", "note for the software team")
	slateSoftwareCmd.AddCommand(slateSoftwareAddCmd, slateSoftwareRemoveCmd)

	slateSubmitCmd.Flags().StringVar(&submitRequestID, "request-id", "", "request id (generated when empty)")
	slateSubmitCmd.Flags().StringVar(&submitFunding, "funding", "", "funding source")
	slateSubmitCmd.Flags().StringVar(&submitContact, "contact", "", "contact name")
	slateSubmitCmd.Flags().StringVar(&submitEmail, "email", "", "contact email")
	slateSubmitCmd.Flags().StringVar(&submitDepartment, "department", "", "contact department")
	slateSubmitCmd.Flags().StringVar(&submitTimeline, "timeline", "", "when the resources are needed")
	slateSubmitCmd.Flags().StringVar(&submitNotes, "notes", "", "final notes")

	slateExportCmd.Flags().StringVarP(&exportOut, "out", "o", "", "write to a file instead of stdout")

	slateCmd.AddCommand(
		slateShowCmd, slateListCmd, slateAddCmd, slateRemoveCmd, slateQtyCmd,
		slateNotesCmd, slateSoftwareCmd, slateProjectCmd, slateSubmitCmd,
		slateDraftCmd, slateRepriceCmd, slateExportCmd, slateWipeCmd, slateDeleteCmd,
	)
}

// withSession opens the session slate, runs fn and saves the slate when fn
// reports a change
func withSession(cmd *cobra.Command, fn func(sess *session) (bool, error)) error {
	cat, err := loadCatalog("")
	if err != nil {
		return err
	}
	ctx := commandContext(cmd)
	sess, err := openSession(ctx, cat)
	if err != nil {
		return err
	}
	defer sess.Close()

	changed, err := fn(sess)
	if err != nil {
		return err
	}
	if changed {
		return sess.save(ctx)
	}
	return nil
}

// editable rejects changes to a submitted slate
func editable(sess *session) error {
	if sess.slate.IsSubmitted() {
		return errors.Newf(errors.TypeInput, "slate %q is submitted; run 'slate draft' to edit it", sess.id)
	}
	return nil
}

// resolveItem finds an item by id or unique id prefix
func resolveItem(s *slate.Store, ref string) (string, error) {
	if ref == "" {
		return "", errors.Input("item id is empty")
	}
	if _, ok := s.Item(ref); ok {
		return ref, nil
	}
	var matches []string
	for _, item := range s.Snapshot().Items {
		if strings.HasPrefix(item.ID, ref) {
			matches = append(matches, item.ID)
		}
	}
	switch len(matches) {
	case 0:
		return "", errors.NotFound("item", ref)
	case 1:
		return matches[0], nil
	default:
		return "", errors.Newf(errors.TypeInput, "item id %q is ambiguous (%d matches)", ref, len(matches))
	}
}

type slateView struct {
	Session string          `json:"session"`
	Slate   slate.Slate     `json:"slate"`
	Monthly decimal.Decimal `json:"total_monthly"`
	Annual  decimal.Decimal `json:"total_annual"`
}

func showSlate(cmd *cobra.Command, sess *session) error {
	if jsonOutput() {
		return printJSON(cmd.OutOrStdout(), slateView{
			Session: sess.id,
			Slate:   sess.slate.Snapshot(),
			Monthly: sess.slate.TotalMonthlyCost(),
			Annual:  sess.slate.TotalAnnualCost(),
		})
	}
	writer(cmd).Slate(sess.slate.Snapshot(), sess.slate.TotalMonthlyCost(), sess.slate.TotalAnnualCost())
	return nil
}

func runSlateShow(cmd *cobra.Command, args []string) error {
	return withSession(cmd, func(sess *session) (bool, error) {
		return false, showSlate(cmd, sess)
	})
}

func runSlateList(cmd *cobra.Command, args []string) error {
	store, err := storage.New(config.Get().Storage)
	if err != nil {
		return err
	}
	defer store.Close()

	list, err := store.List(commandContext(cmd))
	if err != nil {
		return err
	}
	if jsonOutput() {
		return printJSON(cmd.OutOrStdout(), list)
	}

	w := writer(cmd)
	w.Header("Sessions")
	if len(list) == 0 {
		w.Info("No saved sessions")
		return nil
	}
	t := w.NewTable("Session", "Status", "Project", "Items", "Updated")
	for _, s := range list {
		t.AddRow(s.SessionID, string(s.Status), s.ProjectName, humanize.Comma(int64(s.ItemCount)), humanize.Time(s.UpdatedAt))
	}
	t.Render()
	return nil
}

func runSlateAdd(cmd *cobra.Command, args []string) error {
	return withSession(cmd, func(sess *session) (bool, error) {
		if err := editable(sess); err != nil {
			return false, err
		}
		svc, ok := sess.cat.Service(args[0])
		if !ok {
			return false, errors.NotFound("service", args[0])
		}
		qty, err := parseQuantity(args[1])
		if err != nil {
			return false, err
		}
		if slateSubsidy != "" {
			if _, ok := svc.OptInSubsidy(slateSubsidy); !ok {
				return false, errors.NotFound("subsidy", slateSubsidy).WithContext("service", svc.Slug)
			}
		}

		req := slate.ItemRequest{
			Service:  svc.Slug,
			Quantity: qty,
			Subsidy:  slateSubsidy,
			Notes:    slateNotes,
		}
		w := writer(cmd)
		switch {
		case slateWithArchive:
			primary, archive, ok := sess.slate.AddWithArchive(req, slateArchiveRatio)
			w.Success("Added %s %s of %s", ui.Number(primary.Quantity), primary.Unit, primary.Service)
			if ok {
				w.Success("Added %s %s of %s", ui.Number(archive.Quantity), archive.Unit, archive.Service)
			} else {
				w.Warning("%s has no archive option", svc.Slug)
			}
		case slateSeparate:
			item := sess.slate.AddItemSeparate(req)
			w.Success("Added %s %s of %s", ui.Number(item.Quantity), item.Unit, item.Service)
		default:
			item := sess.slate.AddItem(req)
			w.Success("%s is now %s %s (%s/month)", item.Service, ui.Number(item.Quantity), item.Unit, ui.Money(item.MonthlyEstimate))
		}
		return true, nil
	})
}

func runSlateRemove(cmd *cobra.Command, args []string) error {
	return withSession(cmd, func(sess *session) (bool, error) {
		if err := editable(sess); err != nil {
			return false, err
		}
		id, err := resolveItem(sess.slate, args[0])
		if err != nil {
			return false, err
		}
		sess.slate.RemoveItem(id)
		writer(cmd).Success("Removed %s", id)
		return true, nil
	})
}

func runSlateQty(cmd *cobra.Command, args []string) error {
	return withSession(cmd, func(sess *session) (bool, error) {
		if err := editable(sess); err != nil {
			return false, err
		}
		id, err := resolveItem(sess.slate, args[0])
		if err != nil {
			return false, err
		}
		qty, err := parseQuantity(args[1])
		if err != nil {
			return false, err
		}
		item, _ := sess.slate.UpdateQuantity(id, qty)
		writer(cmd).Success("%s is now %s %s (%s/month)", item.Service, ui.Number(item.Quantity), item.Unit, ui.Money(item.MonthlyEstimate))
		return true, nil
	})
}

func runSlateNotes(cmd *cobra.Command, args []string) error {
	return withSession(cmd, func(sess *session) (bool, error) {
		if err := editable(sess); err != nil {
			return false, err
		}
		id, err := resolveItem(sess.slate, args[0])
		if err != nil {
			return false, err
		}
		sess.slate.UpdateItemNotes(id, args[1])
		return true, nil
	})
}

func runSoftwareAdd(cmd *cobra.Command, args []string) error {
	return withSession(cmd, func(sess *session) (bool, error) {
		if err := editable(sess); err != nil {
			return false, err
		}
		added := sess.slate.AddSoftware(slate.Software{
			ID:           args[0],
			LicenseModel: softwareLicense,
			Note:         softwareNote,
		})
		if !added {
			writer(cmd).Info("%s is already requested", args[0])
			return false, nil
		}
		writer(cmd).Success("Requested %s", args[0])
		return true, nil
	})
}

func runSoftwareRemove(cmd *cobra.Command, args []string) error {
	return withSession(cmd, func(sess *session) (bool, error) {
		if err := editable(sess); err != nil {
			return false, err
		}
		if !sess.slate.RemoveSoftware(args[0]) {
			return false, errors.NotFound("software", args[0])
		}
		return true, nil
	})
}

func runSlateProject(cmd *cobra.Command, args []string) error {
	return withSession(cmd, func(sess *session) (bool, error) {
		if err := editable(sess); err != nil {
			return false, err
		}
		sess.slate.SetProjectName(strings.TrimSpace(args[0]))
		return true, nil
	})
}

func runSlateSubmit(cmd *cobra.Command, args []string) error {
	return withSession(cmd, func(sess *session) (bool, error) {
		if err := editable(sess); err != nil {
			return false, err
		}
		if sess.slate.IsEmpty() {
			return false, errors.Input("cannot submit an empty slate")
		}

		details := slate.SubmissionDetails{
			FundingSource: submitFunding,
			Timeline:      submitTimeline,
		}
		if submitContact != "" || submitEmail != "" {
			details.Contact = &slate.Contact{
				Name:       submitContact,
				Email:      submitEmail,
				Department: submitDepartment,
			}
		}
		sess.slate.SetSubmissionDetails(details)
		if submitNotes != "" {
			sess.slate.SetFinalNotes(submitNotes)
		}

		requestID := submitRequestID
		if requestID == "" {
			requestID = "REQ-" + strings.ToUpper(uuid.NewString()[:8])
		}
		sess.slate.MarkSubmitted(requestID)
		writer(cmd).Success("Submitted %s (%s/month)", requestID, ui.Money(sess.slate.TotalMonthlyCost()))
		return true, nil
	})
}

func runSlateDraft(cmd *cobra.Command, args []string) error {
	return withSession(cmd, func(sess *session) (bool, error) {
		if !sess.slate.IsSubmitted() {
			writer(cmd).Info("Slate is already a draft")
			return false, nil
		}
		sess.slate.ResetToDraft()
		writer(cmd).Success("Slate moved back to draft")
		return true, nil
	})
}

func runSlateReprice(cmd *cobra.Command, args []string) error {
	return withSession(cmd, func(sess *session) (bool, error) {
		sess.slate.Reprice()
		return true, showSlate(cmd, sess)
	})
}

func runSlateExport(cmd *cobra.Command, args []string) error {
	return withSession(cmd, func(sess *session) (bool, error) {
		data, err := sess.slate.Export(institution(sess.cat)).JSON()
		if err != nil {
			return false, errors.Internal("failed to encode export", err)
		}
		if exportOut == "" {
			_, err := cmd.OutOrStdout().Write(append(data, '\n'))
			return false, err
		}
		if err := os.WriteFile(exportOut, data, 0644); err != nil {
			return false, errors.Wrap(errors.TypeStorage, "failed to write export", err)
		}
		writer(cmd).Success("Exported to %s", exportOut)
		return false, nil
	})
}

func runSlateWipe(cmd *cobra.Command, args []string) error {
	return withSession(cmd, func(sess *session) (bool, error) {
		sess.slate.Wipe()
		writer(cmd).Success("Slate wiped")
		return true, nil
	})
}

func runSlateDelete(cmd *cobra.Command, args []string) error {
	if err := storage.ValidateSessionID(sessionID); err != nil {
		return err
	}
	store, err := storage.New(config.Get().Storage)
	if err != nil {
		return err
	}
	defer store.Close()

	if err := store.Delete(commandContext(cmd), sessionID); err != nil {
		return err
	}
	writer(cmd).Success("Deleted session %s", sessionID)
	return nil
}
