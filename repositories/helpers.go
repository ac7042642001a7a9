package repositories

import (
	"database/sql"
	"fmt"
	"strings"
)

func checkAffectedRows(result sql.Result, notFoundError error) error {
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check affected rows: %w", err)
	}
	if rowsAffected == 0 {
		return notFoundError // Возвращаем переданную ошибку "не найдено"
	}
	return nil
}

// NormalizeKey приводит имя к ключу для поиска без учёта регистра.
func NormalizeKey(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// nonNil нужен для колонок TEXT[] NOT NULL: pq пишет nil-слайс как NULL.
func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func containsPattern(s string) string {
	return "%" + likeEscaper.Replace(s) + "%"
}
