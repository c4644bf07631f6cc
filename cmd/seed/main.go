package main

import (
	"flag"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"hotelengine/internal/config"
	"hotelengine/internal/database"
	"hotelengine/internal/domain"
	jwtsvc "hotelengine/internal/pkg/jwt"
)

func main() {
	reset := flag.Bool("reset", false, "delete existing data before seeding")
	flag.Parse()

	log := logrus.New()

	cfg, err := config.Load()
	if err != nil {
		log.WithError(err).Fatal("invalid configuration")
	}

	db, err := database.Connect(cfg.DatabaseURL, database.Options{SlowThreshold: cfg.SlowQueryThreshold, Log: log})
	if err != nil {
		log.WithError(err).Fatal("DB connection failed")
	}
	if err := database.Migrate(db); err != nil {
		log.WithError(err).Fatal("migration failed")
	}

	if *reset {
		log.Info("cleaning old data")
		// children first so foreign keys hold
		for _, table := range []string{
			"refund_requests", "discount_code_usages", "booking_incidents", "booking_services",
			"booking_items", "bookings", "discount_codes", "services", "room_devices",
			"room_type_equipments", "equipment", "rooms", "room_types", "floors",
		} {
			if err := db.Exec("DELETE FROM " + table).Error; err != nil {
				log.WithError(err).WithField("table", table).Fatal("cleanup failed")
			}
		}
	}

	if err := db.Transaction(seed); err != nil {
		log.WithError(err).Fatal("seed failed")
	}
	log.Info("seed complete")

	j := jwtsvc.New(cfg.JWTSecret, cfg.JWTTTL)
	for _, u := range []struct {
		id   int64
		role domain.UserRole
	}{
		{1, domain.RoleAdmin},
		{2, domain.RoleManager},
		{3, domain.RoleStaff},
		{100, domain.RoleCustomer},
	} {
		token, err := j.GenerateToken(u.id, string(u.role))
		if err != nil {
			log.WithError(err).Fatal("token generation failed")
		}
		fmt.Printf("%-9s user_id=%-4d %s\n", u.role, u.id, token)
	}
}

func seed(tx *gorm.DB) error {
	upsert := func(v any, cols ...string) error {
		conflict := make([]clause.Column, 0, len(cols))
		for _, c := range cols {
			conflict = append(conflict, clause.Column{Name: c})
		}
		return tx.Clauses(clause.OnConflict{Columns: conflict, DoNothing: true}).Create(v).Error
	}

	floors := []domain.Floor{{Name: "Floor 1", Level: 1}, {Name: "Floor 2", Level: 2}, {Name: "Floor 3", Level: 3}}
	if err := upsert(&floors, "name"); err != nil {
		return err
	}
	if err := tx.Order("level").Find(&floors).Error; err != nil {
		return err
	}

	p80, h24, p50, h72 := 80, 24, 50, 72
	types := []domain.RoomType{
		{Name: "Standard", BasePrice: 800_000, Capacity: 2, BaseAdults: 2, ExtraAdultFee: 150_000, ExtraChildFee: 100_000, Refundable: true},
		{Name: "Deluxe", BasePrice: 1_200_000, Capacity: 3, BaseAdults: 2, BaseChildren: 1, ExtraAdultFee: 250_000, ExtraChildFee: 150_000, Refundable: true, RefundPercent: &p80, RefundDeadlineHours: &h24},
		{Name: "Family Suite", BasePrice: 2_000_000, Capacity: 4, BaseAdults: 2, BaseChildren: 2, ExtraAdultFee: 300_000, ExtraChildFee: 200_000, Refundable: true, RefundPercent: &p50, RefundDeadlineHours: &h72},
		{Name: "Saver", BasePrice: 600_000, Capacity: 2, BaseAdults: 2, NonRefundable: true},
	}
	if err := upsert(&types, "name"); err != nil {
		return err
	}
	if err := tx.Order("id").Find(&types).Error; err != nil {
		return err
	}

	var rooms []domain.Room
	for i, f := range floors {
		for n := 1; n <= 4; n++ {
			rt := types[(i+n)%len(types)]
			rooms = append(rooms, domain.Room{
				Name:       fmt.Sprintf("%d%02d", f.Level, n),
				RoomTypeID: rt.ID,
				FloorID:    f.ID,
				Status:     domain.RoomAvailable,
			})
		}
	}
	if err := upsert(&rooms, "name"); err != nil {
		return err
	}
	if err := tx.Find(&rooms).Error; err != nil {
		return err
	}

	equipment := []domain.Equipment{
		{Name: "TV", CompensationPrice: 5_000_000},
		{Name: "Kettle", CompensationPrice: 300_000},
		{Name: "Towel", CompensationPrice: 50_000},
		{Name: "Hair dryer", CompensationPrice: 400_000},
	}
	if err := upsert(&equipment, "name"); err != nil {
		return err
	}
	if err := tx.Order("id").Find(&equipment).Error; err != nil {
		return err
	}
	perRoom := map[string]struct{ qty, max int }{
		"TV": {1, 1}, "Kettle": {1, 1}, "Towel": {4, 6}, "Hair dryer": {1, 2},
	}

	var standards []domain.RoomTypeEquipment
	for _, rt := range types {
		for _, eq := range equipment {
			q := perRoom[eq.Name]
			standards = append(standards, domain.RoomTypeEquipment{RoomTypeID: rt.ID, EquipmentID: eq.ID, Quantity: q.qty, MaxQuantity: q.max})
		}
	}
	if err := upsert(&standards, "room_type_id", "equipment_id"); err != nil {
		return err
	}

	var devices []domain.RoomDevice
	for _, room := range rooms {
		for _, eq := range equipment {
			devices = append(devices, domain.RoomDevice{RoomID: room.ID, EquipmentID: eq.ID, Quantity: perRoom[eq.Name].qty, Status: domain.DeviceWorking})
		}
	}
	if err := upsert(&devices, "room_id", "equipment_id"); err != nil {
		return err
	}

	services := []domain.ExtraService{
		{Name: "Breakfast", Price: 150_000, Active: true},
		{Name: "Airport pickup", Price: 350_000, Active: true},
		{Name: "Late checkout", Price: 200_000, Active: true},
	}
	if err := upsert(&services, "name"); err != nil {
		return err
	}

	start := time.Now().UTC().Truncate(24 * time.Hour)
	end := start.AddDate(0, 3, 0)
	codes := []domain.DiscountCode{
		{Code: "WELCOME10", Type: domain.DiscountPercent, Value: 10, MaxDiscountAmount: 200_000, MaxUsesPerUser: 1, Status: domain.DiscountActive, StartDate: &start, EndDate: &end},
		{Code: "FLAT100K", Type: domain.DiscountFixed, Value: 100_000, MinTotal: 1_000_000, MaxUses: 100, Status: domain.DiscountActive},
	}
	return upsert(&codes, "code")
}
