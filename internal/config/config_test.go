package config

import "testing"

func TestLoad_RequiresJWTSecret(t *testing.T) {
	t.Setenv("JWT_SECRET", "")
	if _, err := Load(); err == nil {
		t.Fatal("expected error when JWT_SECRET is unset")
	}
}

func TestLoadWithDefaults(t *testing.T) {
	t.Setenv("JWT_SECRET", "")
	t.Setenv("DB_PATH", "")
	cfg, err := LoadWithDefaults()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Auth.JWTSecret == "" {
		t.Fatal("expected development JWT secret default")
	}
	if cfg.HTTP.Address != ":8080" {
		t.Fatalf("expected default HTTP address, got %s", cfg.HTTP.Address)
	}
}

func TestLoad_KafkaBrokersCSV(t *testing.T) {
	t.Setenv("JWT_SECRET", "s3cret")
	t.Setenv("KAFKA_BROKERS", "kafka-1:9092, kafka-2:9092 ,")
	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(cfg.Kafka.Brokers) != 2 {
		t.Fatalf("expected 2 brokers, got %v", cfg.Kafka.Brokers)
	}
	if cfg.Kafka.Brokers[1] != "kafka-2:9092" {
		t.Fatalf("unexpected broker: %s", cfg.Kafka.Brokers[1])
	}
}
