// Package terminal is the inbound edge of the lane: an interactive prompt
// translating cashier input into service calls, and service state back into
// inline messages. It is a thin adapter; every rule lives in the services.
package terminal

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/poslane/poslane/internal/core/domain"
	"github.com/poslane/poslane/internal/core/service"
	"github.com/poslane/poslane/internal/port"
)

const maxCodeLength = 13

// SourceFactory opens a fresh camera stream for one scan cycle.
type SourceFactory func(ctx context.Context) (port.FrameSource, error)

type UI struct {
	in       *bufio.Scanner
	out      io.Writer
	session  *service.SessionService
	checkout *service.CheckoutService
	scanner  *service.ScannerService
	journal  port.ReceiptJournal // optional
	source   SourceFactory       // nil when no camera is configured
	log      *logrus.Logger
}

func New(in io.Reader, out io.Writer, session *service.SessionService, checkout *service.CheckoutService, scanner *service.ScannerService, log *logrus.Logger) *UI {
	return &UI{
		in:       bufio.NewScanner(in),
		out:      out,
		session:  session,
		checkout: checkout,
		scanner:  scanner,
		log:      log,
	}
}

// WithCamera enables the scan command.
func (u *UI) WithCamera(source SourceFactory) *UI {
	u.source = source
	return u
}

// WithReceiptJournal enables the receipts command.
func (u *UI) WithReceiptJournal(journal port.ReceiptJournal) *UI {
	u.journal = journal
	return u
}

// Run drives the lane until the input ends, the cashier quits, or ctx is
// cancelled.
func (u *UI) Run(ctx context.Context) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		quit, err := u.entryScreen(ctx)
		if err != nil || quit {
			return err
		}
	}
}

// entryScreen handles login or guest entry. It reports quit=true when the
// cashier asks to exit or the input ends.
func (u *UI) entryScreen(ctx context.Context) (bool, error) {
	fmt.Fprintln(u.out, "POS lane ready. Commands: login <code> | guest | quit")
	for {
		line, ok := u.readLine("> ")
		if !ok {
			return true, nil
		}
		fields := strings.Fields(line)
		if len(fields) == 0 {
			continue
		}

		switch fields[0] {
		case "login":
			if len(fields) != 2 {
				fmt.Fprintln(u.out, "usage: login <employee code>")
				continue
			}
			if err := u.session.Login(ctx, fields[1]); err != nil {
				switch {
				case errors.Is(err, service.ErrEmployeeNotFound), errors.Is(err, service.ErrEmployeeCodeBlank):
					fmt.Fprintln(u.out, "employee code not found")
				default:
					fmt.Fprintln(u.out, "login failed, try again")
					u.log.WithError(err).Warn("login failed")
				}
				continue
			}
			fmt.Fprintf(u.out, "logged in as %s\n", fields[1])
			return u.transactionScreen(ctx)
		case "guest":
			return u.transactionScreen(ctx)
		case "quit", "exit":
			return true, nil
		default:
			fmt.Fprintln(u.out, "unknown command")
		}
	}
}

// transactionScreen runs the scan/search → stage → add loop and the
// submission flow. It returns to the entry screen after an acknowledged
// completion or a logout.
func (u *UI) transactionScreen(ctx context.Context) (bool, error) {
	fmt.Fprintln(u.out, "Commands: <code> | scan | qty <n> | add | cart | setqty <code> <n> | rm <code> | pay | receipts | reset | logout | quit")
	for {
		line, ok := u.readLine("pos> ")
		if !ok {
			return true, nil
		}
		fields := strings.Fields(line)
		if len(fields) == 0 {
			continue
		}

		switch fields[0] {
		case "scan":
			u.runScan(ctx)
		case "qty":
			if len(fields) != 2 {
				fmt.Fprintln(u.out, "usage: qty <n>")
				continue
			}
			n, err := strconv.Atoi(fields[1])
			if err != nil || n < 1 {
				fmt.Fprintln(u.out, "quantity must be 1 or more")
				continue
			}
			u.checkout.StageQuantity(n)
			u.printStaged()
		case "add":
			u.checkout.AddToCart()
			u.printCart()
		case "cart", "list":
			u.printCart()
		case "setqty":
			if len(fields) != 3 {
				fmt.Fprintln(u.out, "usage: setqty <code> <n>")
				continue
			}
			n, err := strconv.Atoi(fields[2])
			if err != nil || n < 1 {
				fmt.Fprintln(u.out, "quantity must be 1 or more")
				continue
			}
			u.checkout.SetLineQuantity(fields[1], n)
			u.printCart()
		case "rm":
			if len(fields) != 2 {
				fmt.Fprintln(u.out, "usage: rm <code>")
				continue
			}
			u.checkout.RemoveLine(fields[1])
			u.printCart()
		case "pay":
			if done := u.runSubmission(ctx); done {
				return false, nil
			}
		case "receipts":
			u.printReceipts(ctx)
		case "reset":
			u.checkout.Reset()
			fmt.Fprintln(u.out, "transaction cleared")
		case "logout":
			if err := u.session.Logout(ctx); err != nil {
				u.log.WithError(err).Warn("logout failed")
			}
			u.checkout.Reset()
			return false, nil
		case "quit", "exit":
			return true, nil
		default:
			u.lookupCode(ctx, fields[0])
		}
	}
}

// lookupCode treats the input as a typed barcode value.
func (u *UI) lookupCode(ctx context.Context, code string) {
	if !isCode(code) {
		fmt.Fprintln(u.out, "unknown command")
		return
	}
	u.resolve(ctx, code)
}

func (u *UI) resolve(ctx context.Context, code string) {
	if _, err := u.checkout.Lookup(ctx, code); err != nil {
		if errors.Is(err, service.ErrLookupSuperseded) {
			return
		}
		fmt.Fprintln(u.out, "product not found")
		return
	}
	u.printStaged()
}

// runScan arms the capture pipeline and waits for its single detection. A
// camera or decoder failure is shown inline; the pipeline stays down until
// the cashier scans again.
func (u *UI) runScan(ctx context.Context) {
	if u.source == nil {
		fmt.Fprintln(u.out, "no camera configured, type the code instead")
		return
	}

	src, err := u.source(ctx)
	if err != nil {
		fmt.Fprintln(u.out, "camera unavailable")
		u.log.WithError(err).Warn("camera open failed")
		return
	}

	detections := make(chan domain.DetectionEvent, 1)
	scanErrs := make(chan error, 1)
	err = u.scanner.Arm(ctx,
		src,
		func(ev domain.DetectionEvent) { detections <- ev },
		func(err error) { scanErrs <- err },
	)
	if err != nil {
		src.Close()
		fmt.Fprintln(u.out, "scanner busy")
		return
	}

	fmt.Fprintln(u.out, "scanning...")
	select {
	case ev := <-detections:
		fmt.Fprintf(u.out, "detected %s\n", ev.RawValue)
		u.resolve(ctx, ev.RawValue)
	case <-scanErrs:
		fmt.Fprintln(u.out, "scan failed, check the camera and try again")
	case <-ctx.Done():
		u.scanner.Stop()
	}
}

// runSubmission submits the cart and, on success, holds the completion
// confirmation until the cashier acknowledges with ok.
func (u *UI) runSubmission(ctx context.Context) bool {
	total, err := u.checkout.Submit(ctx)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrCartEmpty):
			fmt.Fprintln(u.out, "nothing to purchase")
		case errors.Is(err, service.ErrSubmissionInFlight):
			fmt.Fprintln(u.out, "a purchase is already processing")
		default:
			fmt.Fprintln(u.out, "an error occurred while processing the transaction")
		}
		return false
	}

	fmt.Fprintln(u.out, "purchase complete")
	fmt.Fprintf(u.out, "  subtotal %d\n", total)
	fmt.Fprintf(u.out, "  total    %d\n", total+total/10)
	for {
		line, ok := u.readLine("ok to finish> ")
		if !ok || strings.TrimSpace(line) == "ok" {
			break
		}
	}
	if err := u.checkout.AcknowledgeCompletion(ctx); err != nil {
		u.log.WithError(err).Warn("completion acknowledgment failed")
	}
	return true
}

func (u *UI) printStaged() {
	staged := u.checkout.StagedProduct()
	if staged == nil {
		fmt.Fprintln(u.out, "no product staged")
		return
	}
	fmt.Fprintf(u.out, "%s  %d x %d = %d\n",
		staged.Name, staged.Price, staged.Quantity, staged.Price*int64(staged.Quantity))
}

func (u *UI) printCart() {
	items := u.checkout.Items()
	if len(items) == 0 {
		fmt.Fprintln(u.out, "cart is empty")
		return
	}
	for _, item := range items {
		fmt.Fprintf(u.out, "  %-13s %-20s %d x %d = %d\n",
			item.Code, item.Name, item.Price, item.Quantity, item.Subtotal())
	}
	fmt.Fprintf(u.out, "subtotal %d  tax %d  total %d\n",
		u.checkout.Total(), u.checkout.Tax(), u.checkout.GrandTotal())
}

func (u *UI) printReceipts(ctx context.Context) {
	if u.journal == nil {
		fmt.Fprintln(u.out, "no receipt journal configured")
		return
	}
	receipts, err := u.journal.Recent(ctx, 10)
	if err != nil {
		fmt.Fprintln(u.out, "could not read receipts")
		u.log.WithError(err).Warn("receipt journal read failed")
		return
	}
	if len(receipts) == 0 {
		fmt.Fprintln(u.out, "no receipts yet")
		return
	}
	for _, r := range receipts {
		fmt.Fprintf(u.out, "  %s  %s  %s  total %d (%d lines)\n",
			r.CreatedAt.Format("2006-01-02 15:04:05"), r.ID, r.EmployeeCode, r.Total, len(r.Lines))
	}
}

func (u *UI) readLine(prompt string) (string, bool) {
	fmt.Fprint(u.out, prompt)
	if !u.in.Scan() {
		return "", false
	}
	return u.in.Text(), true
}

// isCode accepts what the search box accepted: digits only, at most 13.
func isCode(s string) bool {
	if s == "" || len(s) > maxCodeLength {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
