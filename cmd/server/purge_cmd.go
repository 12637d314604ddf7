package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/HaiNguyen26/Meals-RMG/internal/businessday"
	"github.com/HaiNguyen26/Meals-RMG/internal/repository"
	"github.com/HaiNguyen26/Meals-RMG/internal/service"
	"github.com/HaiNguyen26/Meals-RMG/pkg/clock"
)

// newPurgeCommand 手动清理过期数据，默认截止日期为当前报餐日期
func newPurgeCommand(configPath *string) *cobra.Command {
	var before string

	cmd := &cobra.Command{
		Use:   "purge",
		Short: "删除早于截止日期的报餐、审计与锁定记录",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := bootstrap(*configPath)
			if err != nil {
				return err
			}
			defer a.close()

			cal, err := businessday.NewFromConfig(&a.cfg.Lunch)
			if err != nil {
				return err
			}

			cutoff := cal.ActiveDate(clock.Real{}.Now())
			if before != "" {
				if cutoff, err = businessday.ParseDate(before); err != nil {
					return err
				}
			}

			repo := repository.NewRepository(a.db)
			retention := service.NewRetentionService(repo, cal, clock.Real{}, nil, a.logger)
			res, err := retention.Purge(cmd.Context(), cutoff)
			if err != nil {
				return err
			}

			a.logger.Info("过期数据清理完成",
				zap.String("before", cutoff.String()),
				zap.Int64("lunches", res.Lunches),
				zap.Int64("histories", res.Histories),
				zap.Int64("locks", res.Locks),
			)
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "purged before %s: lunches=%d histories=%d locks=%d\n",
				cutoff, res.Lunches, res.Histories, res.Locks)
			return err
		},
	}
	cmd.Flags().StringVar(&before, "before", "", "截止日期 YYYY-MM-DD（不含），默认当前报餐日期")
	return cmd
}
