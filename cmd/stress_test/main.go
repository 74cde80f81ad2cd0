package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"sync"
	"sync/atomic"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"sweetshop/internal/adapter/storage"
	"sweetshop/internal/core/service"
)

const (
	mysqlDSN      = "root:root@tcp(localhost:3306)/sweetshop?parseTime=true"
	redisAddr     = "localhost:6379"
	initialStock  = 20
	totalRequests = 50
)

func main() {
	ctx := context.Background()

	// Initialize MySQL
	db, err := sql.Open("mysql", mysqlDSN)
	if err != nil {
		log.Fatalf("failed to connect mysql: %v", err)
	}
	defer db.Close()
	if err := db.PingContext(ctx); err != nil {
		log.Fatalf("failed to ping mysql: %v", err)
	}

	// Initialize Redis
	rdb := redis.NewClient(&redis.Options{Addr: redisAddr})
	if err := rdb.Ping(ctx).Err(); err != nil {
		log.Fatalf("failed to connect redis: %v", err)
	}
	defer rdb.Close()

	// Seed a fresh item
	itemID := uuid.New().String()
	_, err = db.ExecContext(ctx, `
		INSERT INTO items (id, name, category, price, quantity, version, created_at, updated_at)
		VALUES (?, ?, 'Stress', 1.00, ?, 0, NOW(), NOW())`,
		itemID, "stress-item-"+itemID[:8], initialStock,
	)
	if err != nil {
		log.Fatalf("failed to seed item: %v", err)
	}
	defer db.ExecContext(ctx, `DELETE FROM items WHERE id = ?`, itemID)

	catalog := service.NewCatalogService(storage.NewMySQLAdapter(db), storage.NewRedisAdapter(rdb))

	// Counters
	var successCount atomic.Int32
	var failCount atomic.Int32

	// Spawn concurrent purchases
	var wg sync.WaitGroup
	start := time.Now()

	for i := 0; i < totalRequests; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()

			if _, err := catalog.Purchase(ctx, itemID, 1); err == nil {
				successCount.Add(1)
			} else {
				failCount.Add(1)
			}
		}()
	}

	wg.Wait()
	elapsed := time.Since(start)

	// Results
	success := successCount.Load()
	fail := failCount.Load()

	fmt.Println("========== STRESS TEST RESULTS ==========")
	fmt.Printf("Initial Stock:    %d\n", initialStock)
	fmt.Printf("Total Requests:   %d\n", totalRequests)
	fmt.Printf("Successful:       %d\n", success)
	fmt.Printf("Failed:           %d\n", fail)
	fmt.Printf("Duration:         %v\n", elapsed)
	fmt.Println("==========================================")

	if success == int32(initialStock) && fail == int32(totalRequests-initialStock) {
		fmt.Printf("PASS: Exactly %d purchases succeeded, %d failed\n", initialStock, totalRequests-initialStock)
	} else {
		fmt.Printf("FAIL: Expected %d success/%d fail, got %d/%d\n",
			initialStock, totalRequests-initialStock, success, fail)
	}

	// Verify final stock
	var finalStock int
	db.QueryRowContext(ctx, `SELECT quantity FROM items WHERE id = ?`, itemID).Scan(&finalStock)
	fmt.Printf("Final Stock: %d\n", finalStock)

	if finalStock == 0 {
		fmt.Println("PASS: Stock depleted to 0")
	} else {
		fmt.Printf("FAIL: Expected stock 0, got %d\n", finalStock)
	}
}
