package main

import (
	"context"
	stlog "log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"go-referral/log"
	"go-referral/payment/db"
	"go-referral/payment/order"
	"go-referral/service"
	"go-referral/utils"
)

func main() {
	cfg := utils.LoadPaymentConfig()
	logger := log.New("paymentservice")

	var store db.OrderStore = db.NewMemoryStore()
	if cfg.DSN != "" {
		gdb, err := db.Connect(cfg.DSN)
		if err != nil {
			stlog.Fatalln("Error connecting to payment db:", err)
		}
		if err := db.Sync(gdb); err != nil {
			stlog.Fatalln("Error migrating payment db:", err)
		}
		store = db.NewGormStore(gdb)
	} else {
		logger.Warn("PAYMENT_DB not set, orders are kept in memory")
	}

	svc := order.NewService(store, cfg.Delay, logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go svc.Run(ctx, cfg.Interval)

	done := service.Start(ctx, "paymentservice", "", cfg.Port, logger, func(mux *http.ServeMux) {
		order.RegisterHandlers(mux, svc)
	})
	<-done.Done()
}
