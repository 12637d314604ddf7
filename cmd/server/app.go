package main

import (
	"fmt"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/HaiNguyen26/Meals-RMG/config"
	"github.com/HaiNguyen26/Meals-RMG/internal/model"
	"github.com/HaiNguyen26/Meals-RMG/pkg/database"
	applogger "github.com/HaiNguyen26/Meals-RMG/pkg/logger"
)

// app 各子命令共用的基础组件
type app struct {
	cfg    *config.Config
	logger *zap.Logger
	db     *gorm.DB
}

// bootstrap 加载配置 → 初始化日志 → 连接数据库 → 执行迁移
func bootstrap(configPath string) (*app, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("加载配置失败: %w", err)
	}

	logger, err := applogger.NewLogger(&cfg.Log)
	if err != nil {
		return nil, fmt.Errorf("初始化日志失败: %w", err)
	}

	db, err := database.NewDB(&cfg.Database, cfg.Log.Level, logger)
	if err != nil {
		_ = logger.Sync()
		return nil, err
	}

	if err := database.Migrate(db, cfg.Database.Driver, logger, model.All()...); err != nil {
		a := &app{cfg: cfg, logger: logger, db: db}
		a.close()
		return nil, fmt.Errorf("数据库迁移失败: %w", err)
	}

	return &app{cfg: cfg, logger: logger, db: db}, nil
}

func (a *app) close() {
	if sqlDB, err := a.db.DB(); err == nil {
		_ = sqlDB.Close()
	}
	_ = a.logger.Sync()
}
