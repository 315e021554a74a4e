package models

import (
	"time"

	"github.com/MeloQi/EasyGoLib/db"
)

// PairedDevice remembers a receiver that completed the PIN handshake, so a
// rediscovered device comes back already paired after a restart.
type PairedDevice struct {
	Address  string `gorm:"type:varchar(64);primary_key"`
	Port     int    `gorm:"primary_key;auto_increment:false"`
	Name     string `gorm:"type:varchar(128)"`
	Model    string `gorm:"type:varchar(64)"`
	PairedAt time.Time
}

func RememberPaired(address string, port int, name, model string) error {
	rec := PairedDevice{
		Address:  address,
		Port:     port,
		Name:     name,
		Model:    model,
		PairedAt: time.Now(),
	}
	result := db.SQL.Save(&rec)
	return result.Error
}

func ForgetPaired(address string, port int) error {
	result := db.SQL.Delete(PairedDevice{}, "address = ? AND port = ?", address, port)
	return result.Error
}

func IsPaired(address string, port int) bool {
	var count int64
	db.SQL.Model(&PairedDevice{}).Where("address = ? AND port = ?", address, port).Count(&count)
	return count > 0
}

func ListPaired() (devices []PairedDevice, err error) {
	result := db.SQL.Order("paired_at").Find(&devices)
	err = result.Error
	return
}
