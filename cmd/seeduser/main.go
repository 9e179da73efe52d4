// cmd/seeduser/main.go: crea o actualiza el administrador inicial y las monedas base.
// Uso: go run ./cmd/seeduser  o  go run ./cmd/seeduser -hash 'clave' para solo imprimir el hash
package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"puntocambio/internal/config"
	"puntocambio/internal/infra"
	"puntocambio/internal/model"
	"puntocambio/migrations"

	"github.com/rs/zerolog/log"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

func main() {
	soloHash := flag.String("hash", "", "imprime el hash bcrypt de la clave y termina")
	flag.Parse()
	if *soloHash != "" {
		h, err := bcrypt.GenerateFromPassword([]byte(*soloHash), 12)
		if err != nil {
			log.Fatal().Err(err).Msg("bcrypt")
		}
		fmt.Println(string(h))
		return
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("config")
	}
	username := envOr("SEED_ADMIN_USER", "admin")
	password := envOr("SEED_ADMIN_PASSWORD", "cambiar-esta-clave")

	if err := infra.RunMigrations(cfg.DatabaseURL, migrations.FS); err != nil {
		log.Fatal().Err(err).Msg("migrations")
	}
	db, err := infra.NewDatabase(cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("db connect")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), 12)
	if err != nil {
		log.Fatal().Err(err).Msg("bcrypt")
	}

	ctx := context.Background()
	err = db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		admin := model.Usuario{
			Username:     username,
			Nombre:       "Administrador",
			PasswordHash: string(hash),
			Rol:          model.RolAdmin,
			Activo:       true,
		}
		if err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "username"}},
			DoUpdates: clause.AssignmentColumns([]string{"password_hash", "rol", "activo"}),
		}).Create(&admin).Error; err != nil {
			return err
		}

		// EUR is quoted in USD per unit when buying and units per USD when selling.
		monedas := []model.Moneda{
			{Codigo: "USD", Nombre: "Dólar estadounidense", Simbolo: "$", Activo: true,
				ComportamientoCompra: model.Multiplica, ComportamientoVenta: model.Multiplica, OrdenDisplay: 1},
			{Codigo: "EUR", Nombre: "Euro", Simbolo: "€", Activo: true,
				ComportamientoCompra: model.Multiplica, ComportamientoVenta: model.Divide, OrdenDisplay: 2},
			{Codigo: "COP", Nombre: "Peso colombiano", Simbolo: "$", Activo: true,
				ComportamientoCompra: model.Divide, ComportamientoVenta: model.Multiplica, OrdenDisplay: 3},
		}
		return tx.Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "codigo"}}, DoNothing: true}).
			Create(&monedas).Error
	})
	if err != nil {
		log.Fatal().Err(err).Msg("seed")
	}
	log.Info().Str("username", username).Msg("administrador y monedas base listos")
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
