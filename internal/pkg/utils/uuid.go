/*
 * @date: 2025.09.05
 * @description: uuid工具包
 */

package utils

import (
	"strings"

	"github.com/google/uuid"
)

// GenerateUUID 生成UUID v4
// 返回标准格式的UUID字符串，如：550e8400-e29b-41d4-a716-446655440000
func GenerateUUID() (string, error) {
	id, err := uuid.NewRandom()
	if err != nil {
		return "", err
	}
	return id.String(), nil
}

// GenerateSimpleUUID 生成不含连字符的UUID
func GenerateSimpleUUID() (string, error) {
	id, err := GenerateUUID()
	if err != nil {
		return "", err
	}
	return strings.ReplaceAll(id, "-", ""), nil
}
