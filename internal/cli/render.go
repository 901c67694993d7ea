package cli

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/fatih/color"
	"github.com/shopspring/decimal"

	"github.com/irdash/backend/internal/application/dashboard"
	"github.com/irdash/backend/internal/domain/investor"
)

var (
	headerColor = color.New(color.Bold, color.FgHiWhite)
	dimColor    = color.New(color.FgHiBlack)
	warnColor   = color.New(color.FgYellow)
	moneyColor  = color.New(color.FgHiGreen)
)

func memberTypeColor(t investor.MemberType) *color.Color {
	switch t {
	case investor.MemberTypeInternal:
		return color.New(color.FgHiBlue)
	case investor.MemberTypeCoCreator:
		return color.New(color.FgHiMagenta)
	default:
		return color.New(color.FgCyan)
	}
}

// pageFooter prints the position and, when the page is stale, why.
func pageFooter[T any](w io.Writer, snap dashboard.PageSnapshot[T]) {
	writeln(w, "%s", dimColor.Sprintf("page %d of %d (%d total)", snap.Page, max(snap.TotalPages, 1), snap.TotalRows))
	if snap.Err != nil {
		writeln(w, "%s", warnColor.Sprintf("showing last loaded data: %v", snap.Err))
	}
}

func renderMembers(w io.Writer, snap dashboard.PageSnapshot[investor.Person]) {
	headerColor.Fprintln(w, "Members")
	if len(snap.Rows) == 0 {
		writeln(w, "%s", dimColor.Sprint("  no members"))
	} else {
		tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
		for _, p := range snap.Rows {
			fmt.Fprintf(tw, "  %s\t%s\t%s\t%s\n",
				p.Initials(), p.FullName(), p.Email, memberTypeColor(p.MemberType).Sprint(p.MemberType))
		}
		_ = tw.Flush()
	}
	pageFooter(w, snap)
}

func renderDeals(w io.Writer, snap dashboard.PageSnapshot[investor.Item], tickets map[string]int64) {
	headerColor.Fprintln(w, "Deals")
	if len(snap.Rows) == 0 {
		writeln(w, "%s", dimColor.Sprint("  no deals"))
	} else {
		tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
		for _, d := range snap.Rows {
			size := "-"
			if d.TicketSize != nil {
				size = d.TicketSize.StringFixed(2)
			}
			fmt.Fprintf(tw, "  %s\t%s\t%s\tticket %s\t%d tickets\n",
				d.Title, d.Sector, d.Status, size, tickets[d.ID])
		}
		_ = tw.Flush()
	}
	pageFooter(w, snap)
}

func renderVolume(w io.Writer, ranked []investor.InvestorVolume, total decimal.Decimal) {
	headerColor.Fprintln(w, "Committed volume")
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', tabwriter.AlignRight)
	for i, iv := range ranked {
		fmt.Fprintf(tw, "%d.\t%s\t%s\t\n", i+1, iv.Name, iv.Volume.StringFixed(2))
	}
	_ = tw.Flush()
	writeln(w, "total %s", moneyColor.Sprint(total.StringFixed(2)))
}

func renderMetrics(w io.Writer, m investor.KeyMetrics) {
	headerColor.Fprintln(w, "Key metrics")
	writeln(w, "  members  %d", m.TotalMembers)
	for _, t := range investor.AllMemberTypes {
		writeln(w, "    %s %d", memberTypeColor(t).Sprintf("%-12s", t), m.MembersByType[t])
	}
	writeln(w, "  deals    %d", m.TotalDeals)
	writeln(w, "  volume   %s", moneyColor.Sprint(m.TotalCommittedVolume.StringFixed(2)))
	if len(m.TopInvestors) > 0 {
		writeln(w, "  top investors")
		for i, iv := range m.TopInvestors {
			writeln(w, "    %d. %s %s", i+1, iv.Name, iv.Volume.StringFixed(2))
		}
	}
}
