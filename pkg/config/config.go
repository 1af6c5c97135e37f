// Package config는 viper 기반 설정 로딩을 제공합니다.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// 설정 디렉토리 경로
const configDir = "configs"

// Load 서비스 이름에 해당하는 설정 파일을 읽고 환경 변수 오버라이드를 적용한
// viper 인스턴스를 반환합니다.
//
// 탐색 순서: $CONFIG_PATH(파일 또는 디렉토리), configs/{APP_ENV}, configs/example.
// 환경 변수는 {SERVICE}_SECTION_KEY 형태로 매핑됩니다. (예: BILLING_STRIPE_SECRET_KEY)
func Load(serviceName string, defaults map[string]interface{}) (*viper.Viper, error) {
	v := viper.New()
	for k, val := range defaults {
		v.SetDefault(k, val)
	}

	env := os.Getenv("APP_ENV")
	if env == "" {
		env = "dev"
	}

	v.SetConfigType("yaml")
	v.SetEnvPrefix(strings.ToUpper(serviceName))
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if p := os.Getenv("CONFIG_PATH"); p != "" && filepath.Ext(p) != "" {
		v.SetConfigFile(p)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("설정 파일 로드 실패: %w", err)
		}
		return v, nil
	}

	v.SetConfigName(serviceName)
	if p := os.Getenv("CONFIG_PATH"); p != "" {
		v.AddConfigPath(p)
	}
	v.AddConfigPath(filepath.Join(configDir, env))
	v.AddConfigPath(filepath.Join(configDir, "example"))

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("설정 파일 로드 실패: %w", err)
		}
		// 파일이 없으면 기본값과 환경 변수만 사용합니다.
	}
	return v, nil
}
