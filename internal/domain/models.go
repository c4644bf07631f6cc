package domain

// Models lists every table the engine owns, parents first.
func Models() []any {
	return []any{
		&StayStatusRow{},
		&Floor{},
		&RoomType{},
		&Room{},
		&Equipment{},
		&RoomTypeEquipment{},
		&RoomDevice{},
		&ExtraService{},
		&Booking{},
		&BookingItem{},
		&BookingServiceLine{},
		&BookingIncident{},
		&DiscountCode{},
		&DiscountCodeUsage{},
		&RefundRequest{},
	}
}
