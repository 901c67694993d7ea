package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/irdash/backend/internal/application/dashboard"
	"github.com/irdash/backend/internal/domain/investor"
)

func membersCmd(flags *globalFlags) *cobra.Command {
	var page int
	cmd := &cobra.Command{
		Use:   "members",
		Short: "List community members, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, flags, true, func(ctx context.Context, s *session) error {
				cache := s.dash.Persons.Page
				if err := showPage(ctx, cache, page); err != nil {
					return err
				}
				snap := cache.Snapshot()
				renderMembers(cmd.OutOrStdout(), snap)
				return snap.Err
			})
		},
	}
	cmd.Flags().IntVarP(&page, "page", "p", 1, "Page number")
	return cmd
}

func dealsCmd(flags *globalFlags) *cobra.Command {
	var page int
	cmd := &cobra.Command{
		Use:   "deals",
		Short: "List deals with their total tickets",
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, flags, true, func(ctx context.Context, s *session) error {
				cache := s.dash.Items.Deals()
				if err := showPage(ctx, cache, page); err != nil {
					return err
				}
				snap := cache.Snapshot()
				tickets := make(map[string]int64, len(snap.Rows))
				for _, deal := range snap.Rows {
					n, err := s.dash.Commitments.TotalTicketsByDeal(ctx, deal.ID)
					if err != nil {
						return err
					}
					tickets[deal.ID] = n
				}
				renderDeals(cmd.OutOrStdout(), snap, tickets)
				return snap.Err
			})
		},
	}
	cmd.Flags().IntVarP(&page, "page", "p", 1, "Page number")
	return cmd
}

func volumeCmd(flags *globalFlags) *cobra.Command {
	var top int
	cmd := &cobra.Command{
		Use:   "volume",
		Short: "Show committed volume per investor",
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, flags, true, func(ctx context.Context, s *session) error {
				update, err := firstVolume(ctx, s.dash.Volumes)
				if err != nil {
					return err
				}
				ranked := investor.RankInvestors(s.dash.Persons.All.Snapshot().Rows, update.Volumes, top)
				renderVolume(cmd.OutOrStdout(), ranked, update.Volumes.Total())
				return nil
			})
		},
	}
	cmd.Flags().IntVarP(&top, "top", "n", 0, "Only show the n largest investors (0 shows all)")
	return cmd
}

func metricsCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "metrics",
		Short: "Show key metrics",
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, flags, true, func(ctx context.Context, s *session) error {
				if _, err := firstVolume(ctx, s.dash.Volumes); err != nil {
					return err
				}
				m, err := s.dash.KeyMetrics(s.cfg.Dashboard.TopInvestors)
				if err != nil {
					return err
				}
				renderMetrics(cmd.OutOrStdout(), m)
				return nil
			})
		},
	}
}

// showPage moves cache to page when it is not the first one.
func showPage[T any](ctx context.Context, cache *dashboard.PagedCache[T], page int) error {
	if page <= 1 {
		return nil
	}
	if total := cache.Snapshot().TotalPages; page > total {
		return fmt.Errorf("page %d out of range (1-%d)", page, max(total, 1))
	}
	return cache.GoToPage(ctx, page)
}

// firstVolume waits for the first computed update of stream.
func firstVolume(ctx context.Context, stream *dashboard.CommittedVolumeStream) (dashboard.VolumeUpdate, error) {
	ch := make(chan dashboard.VolumeUpdate, 1)
	unsubscribe := stream.Subscribe(func(u dashboard.VolumeUpdate) {
		select {
		case ch <- u:
		default:
		}
	})
	defer unsubscribe()

	select {
	case u := <-ch:
		return u, u.Err
	case <-ctx.Done():
		return dashboard.VolumeUpdate{}, fmt.Errorf("committed volume not ready: %w", ctx.Err())
	}
}

func writeln(w io.Writer, format string, args ...any) {
	fmt.Fprintf(w, format+"\n", args...)
}
