package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/clinic/clinic/internal/config"
	"github.com/clinic/clinic/internal/domain/consultation"
	"github.com/clinic/clinic/internal/domain/roster"
	"github.com/clinic/clinic/internal/platform/attachstore"
	"github.com/clinic/clinic/internal/platform/crypt"
	"github.com/clinic/clinic/internal/platform/recordstore"
)

const (
	dateLayout  = "2006-01-02"
	startLayout = "2006-01-02 15:04"
)

func main() {
	rootCmd := &cobra.Command{
		Use:           "clinic",
		Short:         "Doctor roster and consultation booking for a single clinic",
		SilenceUsage:  true,
		SilenceErrors: false,
	}

	rootCmd.AddCommand(doctorCmd())
	rootCmd.AddCommand(consultCmd())
	rootCmd.AddCommand(availabilityCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// app holds the wired-up services behind every command. Each command builds
// one, does its work and exits; state lives in the encrypted data files.
type app struct {
	cfg    *config.Config
	log    zerolog.Logger
	roster *roster.Service
	ledger *consultation.Ledger
	attach *attachstore.Store
}

func newApp(ctx context.Context) (*app, error) {
	// Logger
	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()
	if os.Getenv("ENV") == "development" {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).With().Timestamp().Logger()
	}

	// Config
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	enc, err := crypt.NewEncryptor(crypt.DeriveKey(cfg.Passphrase, cfg.KDFSalt))
	if err != nil {
		return nil, err
	}

	records, err := recordstore.New(cfg.DataDir, enc, logger)
	if err != nil {
		return nil, err
	}
	attach := attachstore.New(filepath.Join(cfg.DataDir, "patient_img"), enc, logger)

	rosterSvc := roster.NewService(records)
	ledger := consultation.NewLedger(records, attach, logger)
	ledger.AddListener(func(ev consultation.Event) {
		logger.Info().
			Int("event", int(ev.Type)).
			Str("consultation_id", ev.Record.ID).
			Msg("ledger updated")
	})

	if err := rosterSvc.Load(ctx); err != nil {
		return nil, err
	}
	if err := ledger.Load(ctx); err != nil {
		return nil, err
	}

	return &app{
		cfg:    cfg,
		log:    logger,
		roster: rosterSvc,
		ledger: ledger,
		attach: attach,
	}, nil
}

func (a *app) selector() *consultation.Selector {
	if a.cfg.SelectionPolicy == config.PolicyRandom {
		return consultation.NewSelector(consultation.NewRandomPolicy())
	}
	return consultation.NewSelector(consultation.LeastLoadedPolicy{
		Load: a.ledger.CountByDoctor,
	})
}

func (a *app) withinWorkingHours(start time.Time, hours int) error {
	if start.Hour() < a.cfg.OpeningHour || start.Hour()+hours > a.cfg.ClosingHour {
		return fmt.Errorf("consultations run between %02d:00 and %02d:00",
			a.cfg.OpeningHour, a.cfg.ClosingHour)
	}
	return nil
}

func doctorCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "doctor",
		Short: "Manage the doctor roster",
	}

	addCmd := &cobra.Command{
		Use:   "add",
		Short: "Register a doctor on the roster",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := newApp(ctx)
			if err != nil {
				return err
			}

			dobStr, _ := cmd.Flags().GetString("dob")
			dob, err := time.Parse(dateLayout, dobStr)
			if err != nil {
				return fmt.Errorf("--dob must be YYYY-MM-DD: %w", err)
			}

			name, _ := cmd.Flags().GetString("name")
			surname, _ := cmd.Flags().GetString("surname")
			mobile, _ := cmd.Flags().GetString("mobile")
			license, _ := cmd.Flags().GetString("license")
			specialisation, _ := cmd.Flags().GetString("specialisation")

			d := &roster.Doctor{
				Person: roster.Person{
					Name:    name,
					Surname: surname,
					DOB:     dob,
					Mobile:  mobile,
				},
				LicenseNo:      license,
				Specialisation: specialisation,
			}
			if err := a.roster.Add(ctx, d); err != nil {
				return err
			}
			fmt.Printf("Registered %s (%s), %d of %d roster places used.\n",
				d.FullName(), d.LicenseNo, a.roster.Count(), roster.MaxDoctors)
			return nil
		},
	}
	addCmd.Flags().String("name", "", "First name (letters only)")
	addCmd.Flags().String("surname", "", "Surname (letters only)")
	addCmd.Flags().String("dob", "", "Date of birth, YYYY-MM-DD")
	addCmd.Flags().String("mobile", "", "Mobile number, 10 digits")
	addCmd.Flags().String("license", "", "Medical license number")
	addCmd.Flags().String("specialisation", "", "Specialisation")
	addCmd.MarkFlagRequired("name")
	addCmd.MarkFlagRequired("surname")
	addCmd.MarkFlagRequired("dob")
	addCmd.MarkFlagRequired("mobile")
	addCmd.MarkFlagRequired("license")
	addCmd.MarkFlagRequired("specialisation")
	cmd.AddCommand(addCmd)

	removeCmd := &cobra.Command{
		Use:   "remove",
		Short: "Remove a doctor from the roster",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := newApp(ctx)
			if err != nil {
				return err
			}
			license, _ := cmd.Flags().GetString("license")
			removed, err := a.roster.Remove(ctx, license)
			if err != nil {
				return err
			}
			fmt.Printf("Removed %s (%s). Existing consultations keep their booked doctor.\n",
				removed.FullName(), removed.LicenseNo)
			return nil
		},
	}
	removeCmd.Flags().String("license", "", "Medical license number")
	removeCmd.MarkFlagRequired("license")
	cmd.AddCommand(removeCmd)

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List the roster, sorted by surname",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd.Context())
			if err != nil {
				return err
			}
			doctors := a.roster.List()
			if len(doctors) == 0 {
				fmt.Println("The roster is empty.")
				return nil
			}
			fmt.Printf("%-12s %-25s %-20s %-12s %s\n", "LICENSE", "NAME", "SPECIALISATION", "MOBILE", "BOOKINGS")
			fmt.Println("------------ ------------------------- -------------------- ------------ --------")
			for _, d := range doctors {
				fmt.Printf("%-12s %-25s %-20s %-12s %d\n",
					d.LicenseNo, d.FullName(), d.Specialisation, d.Mobile, a.ledger.CountByDoctor(d))
			}
			return nil
		},
	}
	cmd.AddCommand(listCmd)

	return cmd
}

func consultCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "consult",
		Short: "Manage consultation bookings",
	}

	cmd.AddCommand(consultBookCmd())
	cmd.AddCommand(consultEditCmd())
	cmd.AddCommand(consultRemoveCmd())
	cmd.AddCommand(consultListCmd())
	cmd.AddCommand(consultViewCmd())
	return cmd
}

func consultBookCmd() *cobra.Command {
	bookCmd := &cobra.Command{
		Use:   "book",
		Short: "Book a consultation with a doctor",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := newApp(ctx)
			if err != nil {
				return err
			}

			license, _ := cmd.Flags().GetString("license")
			doctor, err := a.roster.Get(license)
			if err != nil {
				return err
			}

			startStr, _ := cmd.Flags().GetString("start")
			start, err := time.Parse(startLayout, startStr)
			if err != nil {
				return fmt.Errorf("--start must be \"YYYY-MM-DD HH:MM\": %w", err)
			}
			hours, _ := cmd.Flags().GetInt("hours")
			if err := a.withinWorkingHours(start, hours); err != nil {
				return err
			}

			patient, err := patientFromFlags(cmd, a)
			if err != nil {
				return err
			}

			// Steer to a substitute when the requested doctor is booked.
			if !consultation.IsAvailable(doctor, start, a.ledger.All()) {
				substitute, err := a.selector().FindSubstitute(doctor, a.roster.All(), a.ledger.All(), start)
				if err != nil {
					return fmt.Errorf("%s is not available at %s and %w",
						doctor.FullName(), start.Format(startLayout), err)
				}
				accept, _ := cmd.Flags().GetBool("accept-substitute")
				if !accept {
					return fmt.Errorf("%s is not available at %s; %s (%s, %s) can cover — rerun with --accept-substitute to book them",
						doctor.FullName(), start.Format(startLayout),
						substitute.FullName(), substitute.LicenseNo, substitute.Specialisation)
				}
				fmt.Printf("Booking substitute %s (%s) in place of %s.\n",
					substitute.FullName(), substitute.LicenseNo, doctor.FullName())
				doctor = substitute
			}

			notes, _ := cmd.Flags().GetString("notes")
			c := &consultation.Consultation{
				Doctor:        *doctor,
				Patient:       patient,
				Start:         start,
				DurationHours: hours,
				Notes:         notes,
			}
			if err := a.ledger.Add(ctx, c); err != nil {
				return err
			}

			attachments, _ := cmd.Flags().GetStringSlice("attach")
			if len(attachments) > 0 {
				if err := storeAttachments(ctx, a, c, attachments); err != nil {
					return err
				}
			}

			fmt.Printf("Booked consultation %s: %s with %s on %s for %dh, £%s.\n",
				c.ID, c.Patient.FullName(), c.Doctor.FullName(),
				c.Start.Format(startLayout), c.DurationHours, consultation.FormatCost(c.Cost))
			return nil
		},
	}
	bookCmd.Flags().String("license", "", "Medical license of the requested doctor")
	bookCmd.Flags().Int("patient-id", 0, "Patient ID; repeat patients are recognised by it")
	bookCmd.Flags().String("name", "", "Patient first name (prefilled for repeat patients)")
	bookCmd.Flags().String("surname", "", "Patient surname (prefilled for repeat patients)")
	bookCmd.Flags().String("dob", "", "Patient date of birth, YYYY-MM-DD")
	bookCmd.Flags().String("mobile", "", "Patient mobile number")
	bookCmd.Flags().String("start", "", "Start time, \"YYYY-MM-DD HH:MM\"")
	bookCmd.Flags().Int("hours", 1, "Duration in whole hours")
	bookCmd.Flags().String("notes", "", "Consultation notes")
	bookCmd.Flags().StringSlice("attach", nil, "Image files to encrypt and attach")
	bookCmd.Flags().Bool("accept-substitute", false, "Accept a substitute doctor if the requested one is busy")
	bookCmd.MarkFlagRequired("license")
	bookCmd.MarkFlagRequired("patient-id")
	bookCmd.MarkFlagRequired("start")
	return bookCmd
}

func consultEditCmd() *cobra.Command {
	editCmd := &cobra.Command{
		Use:   "edit",
		Short: "Reschedule or annotate a consultation",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := newApp(ctx)
			if err != nil {
				return err
			}

			id, _ := cmd.Flags().GetString("id")
			var fields consultation.UpdateFields

			if cmd.Flags().Changed("start") {
				startStr, _ := cmd.Flags().GetString("start")
				start, err := time.Parse(startLayout, startStr)
				if err != nil {
					return fmt.Errorf("--start must be \"YYYY-MM-DD HH:MM\": %w", err)
				}
				fields.Start = &start
			}
			if cmd.Flags().Changed("hours") {
				hours, _ := cmd.Flags().GetInt("hours")
				fields.DurationHours = &hours
			}
			if cmd.Flags().Changed("notes") {
				notes, _ := cmd.Flags().GetString("notes")
				fields.Notes = &notes
			}

			if fields.Start != nil || fields.DurationHours != nil {
				current, err := a.ledger.Get(id)
				if err != nil {
					return err
				}
				start := current.Start
				if fields.Start != nil {
					start = *fields.Start
				}
				hours := current.DurationHours
				if fields.DurationHours != nil {
					hours = *fields.DurationHours
				}
				if err := a.withinWorkingHours(start, hours); err != nil {
					return err
				}
			}

			updated, err := a.ledger.Update(ctx, id, fields)
			if err != nil {
				return err
			}

			attachments, _ := cmd.Flags().GetStringSlice("attach")
			if len(attachments) > 0 {
				if err := storeAttachments(ctx, a, updated, attachments); err != nil {
					return err
				}
			}

			fmt.Printf("Updated consultation %s: %s on %s for %dh, £%s.\n",
				updated.ID, updated.Doctor.FullName(),
				updated.Start.Format(startLayout), updated.DurationHours,
				consultation.FormatCost(updated.Cost))
			return nil
		},
	}
	editCmd.Flags().String("id", "", "Consultation ID")
	editCmd.Flags().String("start", "", "New start time, \"YYYY-MM-DD HH:MM\"")
	editCmd.Flags().Int("hours", 0, "New duration in whole hours")
	editCmd.Flags().String("notes", "", "Replacement notes")
	editCmd.Flags().StringSlice("attach", nil, "Additional image files to encrypt and attach")
	editCmd.MarkFlagRequired("id")
	return editCmd
}

func consultRemoveCmd() *cobra.Command {
	removeCmd := &cobra.Command{
		Use:   "remove",
		Short: "Cancel a consultation and purge its attachments",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := newApp(ctx)
			if err != nil {
				return err
			}
			id, _ := cmd.Flags().GetString("id")
			if err := a.ledger.Remove(ctx, id); err != nil {
				return err
			}
			fmt.Printf("Cancelled consultation %s.\n", id)
			return nil
		},
	}
	removeCmd.Flags().String("id", "", "Consultation ID")
	removeCmd.MarkFlagRequired("id")
	return removeCmd
}

func consultListCmd() *cobra.Command {
	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List booked consultations",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd.Context())
			if err != nil {
				return err
			}

			records := a.ledger.All()
			if patientID, _ := cmd.Flags().GetInt("patient-id"); patientID != 0 {
				records = a.ledger.FindByPatientID(patientID)
			}
			if len(records) == 0 {
				fmt.Println("No consultations booked.")
				return nil
			}

			fmt.Printf("%-10s %-18s %-25s %-25s %-6s %-9s %s\n",
				"ID", "START", "DOCTOR", "PATIENT", "HOURS", "COST", "FILES")
			fmt.Println("---------- ------------------ ------------------------- ------------------------- ------ --------- -----")
			for _, c := range records {
				fmt.Printf("%-10s %-18s %-25s %-25s %-6d £%-8s %d\n",
					c.ID, c.Start.Format(startLayout), c.Doctor.FullName(),
					fmt.Sprintf("%s (#%d)", c.Patient.FullName(), c.Patient.PatientID),
					c.DurationHours, consultation.FormatCost(c.Cost), len(c.Attachments))
			}
			return nil
		},
	}
	listCmd.Flags().Int("patient-id", 0, "Only this patient's consultations")
	return listCmd
}

func consultViewCmd() *cobra.Command {
	viewCmd := &cobra.Command{
		Use:   "view",
		Short: "Show one consultation, optionally decrypting its images",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd.Context())
			if err != nil {
				return err
			}

			id, _ := cmd.Flags().GetString("id")
			c, err := a.ledger.Get(id)
			if err != nil {
				return err
			}

			fmt.Printf("Consultation %s\n", c.ID)
			fmt.Printf("  Doctor:   %s (%s, %s)\n", c.Doctor.FullName(), c.Doctor.LicenseNo, c.Doctor.Specialisation)
			fmt.Printf("  Patient:  %s (#%d), mobile %s\n", c.Patient.FullName(), c.Patient.PatientID, c.Patient.Mobile)
			fmt.Printf("  When:     %s for %dh\n", c.Start.Format(startLayout), c.DurationHours)
			fmt.Printf("  Cost:     £%s\n", consultation.FormatCost(c.Cost))
			if c.Notes != "" {
				fmt.Printf("  Notes:    %s\n", c.Notes)
			}
			fmt.Printf("  Images:   %d\n", len(c.Attachments))

			showImages, _ := cmd.Flags().GetBool("images")
			if !showImages || len(c.Attachments) == 0 {
				return nil
			}

			outDir, _ := cmd.Flags().GetString("out")
			if outDir == "" {
				outDir, err = os.MkdirTemp("", "clinic-view-")
				if err != nil {
					return err
				}
			}

			result := <-a.attach.DecodeAsync(c.Attachments, func(done, total int) {
				fmt.Printf("\rDecrypting images %d/%d", done, total)
			})
			fmt.Println()

			for _, img := range result.Images {
				path := filepath.Join(outDir, filepath.Base(img.Ref))
				if err := os.WriteFile(path, img.Data, 0o600); err != nil {
					return fmt.Errorf("write decrypted image: %w", err)
				}
				fmt.Printf("  %s\n", path)
			}
			if result.Skipped > 0 {
				fmt.Printf("  %d image(s) could not be decrypted.\n", result.Skipped)
			}
			return nil
		},
	}
	viewCmd.Flags().String("id", "", "Consultation ID")
	viewCmd.Flags().Bool("images", false, "Decrypt attachments to --out")
	viewCmd.Flags().String("out", "", "Directory for decrypted images (default: a temp dir)")
	viewCmd.MarkFlagRequired("id")
	return viewCmd
}

func availabilityCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "availability",
		Short: "Check whether a doctor is free at a given time",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd.Context())
			if err != nil {
				return err
			}

			license, _ := cmd.Flags().GetString("license")
			doctor, err := a.roster.Get(license)
			if err != nil {
				return err
			}

			startStr, _ := cmd.Flags().GetString("start")
			start, err := time.Parse(startLayout, startStr)
			if err != nil {
				return fmt.Errorf("--start must be \"YYYY-MM-DD HH:MM\": %w", err)
			}

			if consultation.IsAvailable(doctor, start, a.ledger.All()) {
				fmt.Printf("%s is free at %s.\n", doctor.FullName(), start.Format(startLayout))
				return nil
			}

			fmt.Printf("%s is booked at %s.\n", doctor.FullName(), start.Format(startLayout))
			substitute, err := a.selector().FindSubstitute(doctor, a.roster.All(), a.ledger.All(), start)
			if err != nil {
				fmt.Println("No substitute is available either.")
				return nil
			}
			fmt.Printf("Suggested substitute: %s (%s, %s).\n",
				substitute.FullName(), substitute.LicenseNo, substitute.Specialisation)
			return nil
		},
	}
	cmd.Flags().String("license", "", "Medical license number")
	cmd.Flags().String("start", "", "Start time, \"YYYY-MM-DD HH:MM\"")
	cmd.MarkFlagRequired("license")
	cmd.MarkFlagRequired("start")
	return cmd
}

// patientFromFlags builds the patient from the book flags. For a repeat
// patient the demographics are prefilled from their latest consultation;
// explicit flags still win.
func patientFromFlags(cmd *cobra.Command, a *app) (consultation.Patient, error) {
	patientID, _ := cmd.Flags().GetInt("patient-id")
	name, _ := cmd.Flags().GetString("name")
	surname, _ := cmd.Flags().GetString("surname")
	mobile, _ := cmd.Flags().GetString("mobile")
	dobStr, _ := cmd.Flags().GetString("dob")

	patient := consultation.Patient{PatientID: patientID}
	if previous := a.ledger.FindByPatientID(patientID); len(previous) > 0 {
		patient.Person = previous[len(previous)-1].Patient.Person
		fmt.Printf("Repeat patient #%d: %s, repeat rate applies.\n", patientID, patient.FullName())
	}

	if name != "" {
		patient.Name = name
	}
	if surname != "" {
		patient.Surname = surname
	}
	if mobile != "" {
		patient.Mobile = mobile
	}
	if dobStr != "" {
		dob, err := time.Parse(dateLayout, dobStr)
		if err != nil {
			return consultation.Patient{}, fmt.Errorf("--dob must be YYYY-MM-DD: %w", err)
		}
		patient.DOB = dob
	}

	if strings.TrimSpace(patient.Name) == "" || strings.TrimSpace(patient.Surname) == "" {
		return consultation.Patient{}, fmt.Errorf("--name and --surname are required for a new patient")
	}
	return patient, nil
}

// storeAttachments encrypts the given files into the attachment store and
// appends their references to the consultation record.
func storeAttachments(ctx context.Context, a *app, c *consultation.Consultation, paths []string) error {
	refs := append([]string(nil), c.Attachments...)
	for _, path := range paths {
		ref, err := a.attach.StoreEncrypted(c.ID, path)
		if err != nil {
			return err
		}
		refs = append(refs, ref)
	}
	updated, err := a.ledger.Update(ctx, c.ID, consultation.UpdateFields{Attachments: refs})
	if err != nil {
		return err
	}
	*c = *updated
	return nil
}
