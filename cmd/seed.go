package cmd

import (
	"context"
	"fmt"
	"log"

	"shop-finder/internal/services"
	"shop-finder/internal/shops"
	"shop-finder/models"

	"github.com/google/uuid"
	"github.com/jaswdr/faker"
	"github.com/pocketbase/pocketbase/core"
	"github.com/spf13/cobra"
)

const defaultCapacity = 2

type seedOptions struct {
	shops    int
	capacity int
	maxQueue int
}

func newSeedCommand(app core.App, shopRepo *shops.Repository, availabilityService *services.AvailabilityService, queueService *services.QueueService) *cobra.Command {
	opts := seedOptions{}

	command := &cobra.Command{
		Use:   "seed",
		Short: "Create demo shops with live availability and queues",
		RunE: func(command *cobra.Command, args []string) error {
			if opts.shops <= 0 {
				return fmt.Errorf("--shops must be positive, got %d", opts.shops)
			}
			if err := app.RunAllMigrations(); err != nil {
				return fmt.Errorf("run migrations: %w", err)
			}
			return seed(command.Context(), opts, shopRepo, availabilityService, queueService)
		},
	}

	command.Flags().IntVar(&opts.shops, "shops", 10, "number of shops to create")
	command.Flags().IntVar(&opts.capacity, "capacity", defaultCapacity, "max capacity of every service")
	command.Flags().IntVar(&opts.maxQueue, "max-queue", 6, "upper bound of people queued per shop")

	return command
}

func seed(ctx context.Context, opts seedOptions, shopRepo *shops.Repository, availabilityService *services.AvailabilityService, queueService *services.QueueService) error {
	if ctx == nil {
		ctx = context.Background()
	}
	fake := faker.New()

	for i := 0; i < opts.shops; i++ {
		shop, err := shopRepo.Create(ctx, fakeShop(fake))
		if err != nil {
			return err
		}

		statuses := services.DefaultServiceStatuses(shop.Services, opts.capacity)
		for j := range statuses {
			statuses[j].CurrentCapacity = fake.IntBetween(0, opts.capacity)
			statuses[j].IsAvailable = statuses[j].CurrentCapacity < opts.capacity
		}
		if _, err := availabilityService.Initialize(ctx, shop.ID, statuses); err != nil {
			return err
		}

		queued := fake.IntBetween(0, opts.maxQueue)
		for j := 0; j < queued; j++ {
			userID := "seed-" + uuid.NewString()
			serviceID := fake.RandomStringElement(shop.Services)
			if _, err := queueService.Enter(ctx, shop.ID, userID, serviceID); err != nil {
				return err
			}
		}

		log.Printf("Seeded shop %s (%s) with %d services and %d queued", shop.Name, shop.ID, len(shop.Services), queued)
	}

	return nil
}

// fakeShop builds a shop offering services from one or two catalog groups.
func fakeShop(fake faker.Faker) models.Shop {
	groups := []models.ServiceGroup{models.ServiceGroups[fake.IntBetween(0, len(models.ServiceGroups)-1)]}
	if fake.Bool() {
		groups = append(groups, models.ServiceGroups[fake.IntBetween(0, len(models.ServiceGroups)-1)])
	}

	seen := make(map[string]bool)
	var offered []string
	for _, group := range groups {
		count := fake.IntBetween(1, len(group.Services))
		for _, svc := range group.Services[:count] {
			if !seen[svc] {
				seen[svc] = true
				offered = append(offered, svc)
			}
		}
	}

	opensAt := fake.IntBetween(7, 10)
	closesAt := fake.IntBetween(18, 22)

	return models.Shop{
		ShopDetails: models.ShopDetails{
			Name:     fake.Company().Name(),
			Distance: fake.Float64(1, 0, 12),
			Services: offered,
		},
		Address:   fake.Address().Address(),
		Latitude:  fake.Address().Latitude(),
		Longitude: fake.Address().Longitude(),
		Rating:    fake.Float64(1, 3, 5),
		IsOpen:    fake.IntBetween(0, 9) > 0,
		OpensAt:   fmt.Sprintf("%02d:00", opensAt),
		ClosesAt:  fmt.Sprintf("%02d:00", closesAt),
	}
}
