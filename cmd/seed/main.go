package main

import (
	"fmt"

	"github.com/adreward-next/internal/config"
	"github.com/adreward-next/internal/logger"
	"github.com/adreward-next/internal/models"
	"github.com/adreward-next/internal/provider"
	"github.com/adreward-next/internal/repository"
	"github.com/adreward-next/internal/service"
)

// 演示推荐链深度，比最大分佣层级多一级以便观察截断
const demoChainDepth = config.MaxReferralDepth + 1

type seedTier struct {
	name     string
	minPrice int64
	maxPrice int64
	rates    []int64
}

var seedTiers = []seedTier{
	{name: "Starter", minPrice: 0, maxPrice: 99, rates: []int64{10, 5, 3, 2, 1, 1}},
	{name: "Growth", minPrice: 100, maxPrice: 499, rates: []int64{40, 20, 10, 5, 3, 2}},
	{name: "Premium", minPrice: 500, maxPrice: 5000, rates: []int64{150, 60, 30, 15, 10, 5}},
}

func main() {
	cfg := config.Load()
	cfg.Queue.Enabled = false
	logger.Init(cfg.Server.Mode, cfg.Log.ToLoggerOptions())
	stdLog := logger.StdLogger()
	if err := models.InitDB(cfg.Database.ToDBOptions()); err != nil {
		stdLog.Fatalf("Failed to connect database: %v", err)
	}
	if err := models.AutoMigrate(); err != nil {
		stdLog.Fatalf("Failed to migrate database: %v", err)
	}
	if err := models.InitDefaultAdmin("", ""); err != nil {
		stdLog.Printf("init default admin failed: %v", err)
	}

	c := provider.NewContainer(cfg)

	_, total, err := c.TierService.ListTiers(repository.CommissionTierListFilter{Page: 1, PageSize: 1})
	if err != nil {
		stdLog.Fatalf("list tiers failed: %v", err)
	}
	if total > 0 {
		stdLog.Printf("tiers already present, skip seeding")
		return
	}

	for _, item := range seedTiers {
		rates := make([]models.Money, 0, len(item.rates))
		for _, r := range item.rates {
			rates = append(rates, models.NewMoneyFromInt(r))
		}
		tier, err := c.TierService.CreateTier(service.TierInput{
			Name:     item.name,
			MinPrice: models.NewMoneyFromInt(item.minPrice),
			MaxPrice: models.NewMoneyFromInt(item.maxPrice),
			Rates:    rates,
			IsActive: true,
		})
		if err != nil {
			stdLog.Fatalf("create tier %s failed: %v", item.name, err)
		}
		logger.Infow("seed_tier_created", "tier_id", tier.ID, "name", tier.Name)
	}

	// 演示推荐链：root <- u1 <- u2 ... 每一级都以上一级的推荐码注册
	parentCode := ""
	var chain []*models.User
	for i := 0; i <= demoChainDepth; i++ {
		user, _, _, err := c.UserAuthService.Register(service.RegisterInput{
			Email:        fmt.Sprintf("demo%d@example.com", i),
			Password:     "demo12345",
			DisplayName:  fmt.Sprintf("demo-%d", i),
			ReferralCode: parentCode,
		})
		if err != nil {
			stdLog.Fatalf("register demo user %d failed: %v", i, err)
		}
		chain = append(chain, user)
		parentCode = user.ReferralCode
	}
	root := chain[0]

	if _, _, err := c.WalletService.AdminAdjustBalance(service.WalletAdjustInput{
		UserID: root.ID,
		Delta:  models.NewMoneyFromInt(10000),
		Remark: "seed",
	}); err != nil {
		stdLog.Fatalf("fund root failed: %v", err)
	}

	keys, err := c.KeyService.CreateKeys(service.CreateKeysInput{
		Count:            len(chain),
		Price:            models.NewMoneyFromInt(199),
		WithdrawalLimit:  models.NewMoneyFromInt(1000),
		OriginatorUserID: root.ID,
		Prefix:           "DEMO",
	})
	if err != nil {
		stdLog.Fatalf("create keys failed: %v", err)
	}
	for _, key := range keys {
		logger.Infow("seed_key_created", "code", key.Code, "price", key.Price.String())
	}

	stdLog.Printf("Seed data inserted: %d tiers, %d demo users, %d keys", len(seedTiers), len(chain), len(keys))
}
