package main

import "testing"

func TestVLOOKUPExactMatch(t *testing.T) {
	NewSpreadsheetTestCase(t, "VLOOKUP exact match").
		Set("Sheet1!A1", "Apple").
		Set("Sheet1!B1", 1.5).
		Set("Sheet1!A2", "Banana").
		Set("Sheet1!B2", 0.75).
		Set("Sheet1!A3", "Cherry").
		Set("Sheet1!B3", 4.0).
		Set("Sheet1!D1", "=VLOOKUP(\"Banana\", A1:B3, 2, FALSE)").
		RunAndAssertNoError().
		AssertCellEq("Sheet1!D1", 0.75)
}

func TestVLOOKUPNoMatchReturnsNA(t *testing.T) {
	NewSpreadsheetTestCase(t, "VLOOKUP no match").
		Set("Sheet1!A1", "Apple").
		Set("Sheet1!B1", 1.5).
		Set("Sheet1!D1", "=VLOOKUP(\"Mango\", A1:B1, 2, FALSE)").
		RunAndAssertNoError().
		AssertCellErr("Sheet1!D1", ErrorCodeNA)
}

func TestVLOOKUPApproximateMatch(t *testing.T) {
	NewSpreadsheetTestCase(t, "VLOOKUP approximate match").
		Set("Sheet1!A1", 1.0).
		Set("Sheet1!B1", "low").
		Set("Sheet1!A2", 10.0).
		Set("Sheet1!B2", "mid").
		Set("Sheet1!A3", 20.0).
		Set("Sheet1!B3", "high").
		Set("Sheet1!D1", "=VLOOKUP(15, A1:B3, 2, TRUE)").
		RunAndAssertNoError().
		AssertCellEq("Sheet1!D1", "mid")
}

func TestHLOOKUPExactMatch(t *testing.T) {
	NewSpreadsheetTestCase(t, "HLOOKUP exact match").
		Set("Sheet1!A1", "Q1").
		Set("Sheet1!B1", "Q2").
		Set("Sheet1!A2", 100.0).
		Set("Sheet1!B2", 200.0).
		Set("Sheet1!D1", "=HLOOKUP(\"Q2\", A1:B2, 2, FALSE)").
		RunAndAssertNoError().
		AssertCellEq("Sheet1!D1", 200.0)
}

func TestINDEXSingleColumn(t *testing.T) {
	NewSpreadsheetTestCase(t, "INDEX single column").
		Set("Sheet1!A1", 10.0).
		Set("Sheet1!A2", 20.0).
		Set("Sheet1!A3", 30.0).
		Set("Sheet1!D1", "=INDEX(A1:A3, 2)").
		RunAndAssertNoError().
		AssertCellEq("Sheet1!D1", 20.0)
}

func TestINDEXTwoDimensional(t *testing.T) {
	NewSpreadsheetTestCase(t, "INDEX two dimensional").
		Set("Sheet1!A1", 1.0).
		Set("Sheet1!B1", 2.0).
		Set("Sheet1!A2", 3.0).
		Set("Sheet1!B2", 4.0).
		Set("Sheet1!D1", "=INDEX(A1:B2, 2, 2)").
		RunAndAssertNoError().
		AssertCellEq("Sheet1!D1", 4.0)
}

func TestMATCHExact(t *testing.T) {
	NewSpreadsheetTestCase(t, "MATCH exact").
		Set("Sheet1!A1", "x").
		Set("Sheet1!A2", "y").
		Set("Sheet1!A3", "z").
		Set("Sheet1!D1", "=MATCH(\"y\", A1:A3, 0)").
		RunAndAssertNoError().
		AssertCellEq("Sheet1!D1", 2.0)
}

func TestMATCHApproximateAscending(t *testing.T) {
	NewSpreadsheetTestCase(t, "MATCH approximate ascending").
		Set("Sheet1!A1", 1.0).
		Set("Sheet1!A2", 5.0).
		Set("Sheet1!A3", 10.0).
		Set("Sheet1!D1", "=MATCH(7, A1:A3, 1)").
		RunAndAssertNoError().
		AssertCellEq("Sheet1!D1", 2.0)
}

func TestXLOOKUPBasic(t *testing.T) {
	NewSpreadsheetTestCase(t, "XLOOKUP basic").
		Set("Sheet1!A1", "alpha").
		Set("Sheet1!A2", "beta").
		Set("Sheet1!A3", "gamma").
		Set("Sheet1!B1", 1.0).
		Set("Sheet1!B2", 2.0).
		Set("Sheet1!B3", 3.0).
		Set("Sheet1!D1", "=XLOOKUP(\"beta\", A1:A3, B1:B3)").
		RunAndAssertNoError().
		AssertCellEq("Sheet1!D1", 2.0)
}

func TestXLOOKUPNotFoundFallback(t *testing.T) {
	NewSpreadsheetTestCase(t, "XLOOKUP not found fallback").
		Set("Sheet1!A1", "alpha").
		Set("Sheet1!B1", 1.0).
		Set("Sheet1!D1", "=XLOOKUP(\"delta\", A1:A1, B1:B1, \"missing\")").
		RunAndAssertNoError().
		AssertCellEq("Sheet1!D1", "missing")
}

func TestXLOOKUPWildcardMatch(t *testing.T) {
	NewSpreadsheetTestCase(t, "XLOOKUP wildcard match").
		Set("Sheet1!A1", "report-2024.csv").
		Set("Sheet1!A2", "report-2025.csv").
		Set("Sheet1!B1", "old").
		Set("Sheet1!B2", "new").
		Set("Sheet1!D1", "=XLOOKUP(\"*2025*\", A1:A2, B1:B2, \"none\", 2)").
		RunAndAssertNoError().
		AssertCellEq("Sheet1!D1", "new")
}

func TestOFFSETFromRange(t *testing.T) {
	NewSpreadsheetTestCase(t, "OFFSET from range").
		Set("Sheet1!A1", 1.0).
		Set("Sheet1!A2", 2.0).
		Set("Sheet1!A3", 3.0).
		Set("Sheet1!D1", "=SUM(OFFSET(A1:A1, 1, 0, 2, 1))").
		RunAndAssertNoError().
		AssertCellEq("Sheet1!D1", 5.0)
}
