// seed upserts employees into the attendance database from a YAML file.
// Employees are matched by email, so rerunning the same file updates names
// and positions in place and keeps their attendance history.
//
// Usage:
//
//	go run ./cmd/seed -db ./data/attendance.db -file employees.yaml
//	go run ./cmd/seed -hash-password 's3cret'   # prints a bcrypt hash for ADMIN_PASSWORD_HASH
//
// Without -file the single sample employee is seeded.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/warp/attendance-engine/auth"
	"github.com/warp/attendance-engine/config"
	"github.com/warp/attendance-engine/generic"
	"github.com/warp/attendance-engine/store/sqlite"
	"gopkg.in/yaml.v3"
)

type seedEmployee struct {
	Code     string `yaml:"code"`
	Email    string `yaml:"email"`
	Name     string `yaml:"name"`
	Position string `yaml:"position"`
}

type seedFile struct {
	Employees []seedEmployee `yaml:"employees"`
}

var sampleEmployees = []seedEmployee{{
	Code:     "ER 1040",
	Email:    "ashid@eliteresumes.co",
	Name:     "Ashid",
	Position: "Digital Marketing Associate",
}}

func main() {
	configFile := flag.String("config", "", "YAML configuration file")
	dbPath := flag.String("db", "", "SQLite database path (overrides config)")
	file := flag.String("file", "", "YAML file with an employees list")
	hashPassword := flag.String("hash-password", "", "print a bcrypt hash of this password and exit")
	flag.Parse()

	if *hashPassword != "" {
		hash, err := auth.HashPassword(*hashPassword)
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to hash password: %v\n", err)
			os.Exit(1)
		}
		fmt.Println(hash)
		return
	}

	cfg, err := config.Load(*configFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}
	if *dbPath != "" {
		cfg.DatabasePath = *dbPath
	}
	logger, err := config.NewLogger(cfg.Log, os.Stdout)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to build logger: %v\n", err)
		os.Exit(1)
	}

	employees := sampleEmployees
	if *file != "" {
		if employees, err = loadSeedFile(*file); err != nil {
			logger.Fatalf("Failed to read seed file: %v", err)
		}
	}

	store, err := sqlite.New(cfg.DatabasePath)
	if err != nil {
		logger.Fatalf("Failed to initialize database: %v", err)
	}
	defer store.Close()

	n, err := seed(context.Background(), store, employees, logger)
	if err != nil {
		logger.Fatalf("Seeding failed after %d employees: %v", n, err)
	}
	logger.WithField("count", n).Info("Database seeded successfully")
}

func loadSeedFile(path string) ([]seedEmployee, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var f seedFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	if len(f.Employees) == 0 {
		return nil, fmt.Errorf("%s: no employees listed", path)
	}
	return f.Employees, nil
}

// seed upserts each employee, reusing the ID of an existing employee with the
// same email. It returns how many employees were written.
func seed(ctx context.Context, store generic.EmployeeStore, employees []seedEmployee, log logrus.FieldLogger) (int, error) {
	for i, e := range employees {
		if err := validateSeed(e); err != nil {
			return i, fmt.Errorf("employee %d: %w", i+1, err)
		}

		emp := generic.Employee{
			ID:       generic.EmployeeID(generic.NewRecordID()),
			Code:     strings.TrimSpace(e.Code),
			Email:    strings.TrimSpace(e.Email),
			Name:     strings.TrimSpace(e.Name),
			Position: strings.TrimSpace(e.Position),
		}
		existing, err := store.GetEmployeeByEmail(ctx, emp.Email)
		if err != nil {
			return i, err
		}
		action := "created"
		if existing != nil {
			emp.ID = existing.ID
			emp.CreatedAt = existing.CreatedAt
			action = "updated"
		}

		if err := store.SaveEmployee(ctx, emp); err != nil {
			return i, fmt.Errorf("save %s: %w", emp.Email, err)
		}
		log.WithFields(logrus.Fields{"employee_id": emp.ID, "code": emp.Code}).Info("Employee " + action)
	}
	return len(employees), nil
}

func validateSeed(e seedEmployee) error {
	var errs []error
	if strings.TrimSpace(e.Code) == "" {
		errs = append(errs, &generic.ValidationError{Field: "code", Message: "is required"})
	}
	if strings.TrimSpace(e.Email) == "" {
		errs = append(errs, &generic.ValidationError{Field: "email", Message: "is required"})
	}
	if strings.TrimSpace(e.Name) == "" {
		errs = append(errs, &generic.ValidationError{Field: "name", Message: "is required"})
	}
	return errors.Join(errs...)
}
