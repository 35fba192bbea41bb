// =============================================================================
// Statement Order Replay - File Manager Utility
// =============================================================================
//
// This module provides file management utilities for the CLI, including:
//   - Statement discovery (files and directories)
//   - Statement archival after a fully successful replay
//   - Error log and run summary generation
//   - Replay result files
//
// ARCHIVAL STRATEGY:
//   - A statement is moved to the archive directory only when every one of
//     its transactions was replayed successfully. Archived statements are not
//     picked up again, which keeps a second run from booking the same
//     orders twice.
//   - Statements with failures stay where they are.
//   - Error logs, summaries and result files are written to the output
//     directory.
//
// =============================================================================

package utils

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
)

// statementExtensions are the file types DiscoverStatementFiles picks up.
var statementExtensions = map[string]bool{
	".xlsx": true,
	".xlsm": true,
	".csv":  true,
}

// =============================================================================
// FILE MANAGER
// =============================================================================

// FileManager handles file operations for the CLI.
type FileManager struct {
	// OutputDir is the directory where logs and result files are placed.
	OutputDir string

	// ArchiveDir is the directory for replayed statements.
	ArchiveDir string

	// UseTimestampSubdirs creates date-based subdirectories in the archive.
	// Example: archive/2024/01/15/statement.xlsx
	UseTimestampSubdirs bool

	// now is the clock used for file names and archive subdirectories.
	now func() time.Time
}

// NewFileManager creates a new FileManager with the specified directories.
func NewFileManager(outputDir, archiveDir string) *FileManager {
	return &FileManager{
		OutputDir:  outputDir,
		ArchiveDir: archiveDir,
		now:        time.Now,
	}
}

// =============================================================================
// DIRECTORY MANAGEMENT
// =============================================================================

// EnsureDirectories creates all required directories if they don't exist.
//
// RETURNS:
//   - An error if any directory cannot be created.
func (fm *FileManager) EnsureDirectories() error {
	for _, dir := range []string{fm.OutputDir, fm.ArchiveDir} {
		if dir == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}

	return nil
}

// =============================================================================
// FILE DISCOVERY
// =============================================================================

// DiscoverStatementFiles expands the given paths into statement files.
//
// PARAMETERS:
//   - paths: Files or directories. Directories are scanned (not recursively)
//     for .xlsx, .xlsm and .csv files; files are used as given.
//
// RETURNS:
//   - The statement files, directory entries sorted by name. Spreadsheet
//     lock files ("~$...") are skipped.
//   - An error if a path does not exist.
func DiscoverStatementFiles(paths []string) ([]string, error) {
	var result []string

	for _, path := range paths {
		info, err := os.Stat(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", path, err)
		}

		if !info.IsDir() {
			result = append(result, path)
			continue
		}

		entries, err := os.ReadDir(path)
		if err != nil {
			return nil, fmt.Errorf("failed to scan directory %s: %w", path, err)
		}

		var found []string
		for _, entry := range entries {
			name := entry.Name()
			if entry.IsDir() || strings.HasPrefix(name, "~$") {
				continue
			}
			if statementExtensions[strings.ToLower(filepath.Ext(name))] {
				found = append(found, filepath.Join(path, name))
			}
		}
		sort.Strings(found)
		result = append(result, found...)
	}

	return result, nil
}

// =============================================================================
// FILE ARCHIVAL
// =============================================================================

// ArchiveStatement moves a statement file to the archive directory.
//
// PARAMETERS:
//   - filePath: The path to the file to archive.
//
// RETURNS:
//   - The path to the archived file.
//   - An error if archival fails.
func (fm *FileManager) ArchiveStatement(filePath string) (string, error) {
	if fm.ArchiveDir == "" {
		return filePath, nil
	}

	// Determine the archive path.
	archivePath := fm.getArchivePath(filePath)

	// Ensure the archive directory exists.
	if err := os.MkdirAll(filepath.Dir(archivePath), 0755); err != nil {
		return "", fmt.Errorf("failed to create archive directory: %w", err)
	}

	// Move the file.
	if err := os.Rename(filePath, archivePath); err != nil {
		// If rename fails (e.g., cross-device), try copy and delete.
		if err := copyFile(filePath, archivePath); err != nil {
			return "", fmt.Errorf("failed to copy file to archive: %w", err)
		}
		if err := os.Remove(filePath); err != nil {
			return "", fmt.Errorf("failed to remove original file: %w", err)
		}
	}

	return archivePath, nil
}

// getArchivePath constructs the archive path for a file.
func (fm *FileManager) getArchivePath(filePath string) string {
	fileName := filepath.Base(filePath)

	if fm.UseTimestampSubdirs {
		now := fm.clock()
		return filepath.Join(
			fm.ArchiveDir,
			fmt.Sprintf("%d", now.Year()),
			fmt.Sprintf("%02d", now.Month()),
			fmt.Sprintf("%02d", now.Day()),
			fileName,
		)
	}

	return filepath.Join(fm.ArchiveDir, fileName)
}

func (fm *FileManager) clock() time.Time {
	if fm.now == nil {
		return time.Now()
	}
	return fm.now()
}

// =============================================================================
// OUTPUT FILE NAMING
// =============================================================================

// GenerateOutputFileName generates a unique output file name.
//
// PARAMETERS:
//   - format: The format string for the file name.
//     Placeholders:
//     {uuid}      - A random UUID
//     {short}     - The first 8 characters of that UUID
//     {timestamp} - Current timestamp (YYYYMMDD_HHMMSS)
//     {date}      - Current date (YYYYMMDD)
//     {original}  - Passed in params: the statement name without extension
//   - params: A map of additional placeholder values.
//   - ext: The extension to ensure, e.g. ".json".
//
// EXAMPLE:
//   format: "replay_{original}_{timestamp}_{short}"
//   params: {"original": "april"}
//   output: "replay_april_20240115_143022_a1b2c3d4.json"
func (fm *FileManager) GenerateOutputFileName(format string, params map[string]string, ext string) string {
	now := fm.clock()
	id := uuid.New().String()

	replacements := map[string]string{
		"{uuid}":      id,
		"{short}":     id[:8],
		"{timestamp}": now.Format("20060102_150405"),
		"{date}":      now.Format("20060102"),
	}
	for key, value := range params {
		replacements["{"+key+"}"] = value
	}

	result := format
	for placeholder, value := range replacements {
		result = strings.ReplaceAll(result, placeholder, value)
	}

	if ext != "" && !strings.HasSuffix(strings.ToLower(result), strings.ToLower(ext)) {
		result += ext
	}

	return result
}

// =============================================================================
// RESULT FILES
// =============================================================================

// WriteJSON writes v as indented JSON to a new file in the output directory.
//
// RETURNS:
//   - The path to the written file.
//   - An error if encoding or writing fails.
func (fm *FileManager) WriteJSON(fileName string, v interface{}) (string, error) {
	path := filepath.Join(fm.OutputDir, fileName)

	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to encode %s: %w", fileName, err)
	}
	if err := os.WriteFile(path, append(data, '\n'), 0644); err != nil {
		return "", fmt.Errorf("failed to write %s: %w", fileName, err)
	}

	return path, nil
}

// =============================================================================
// ERROR LOG GENERATION
// =============================================================================

// ErrorLogEntry represents one failed transaction.
type ErrorLogEntry struct {
	Timestamp     time.Time
	FileName      string
	Mode          string
	TransactionID string
	SourceRow     int
	Date          string
	Amount        string
	ErrorMessage  string
}

// WriteErrorLog writes error entries to a log file in the output directory.
//
// RETURNS:
//   - The path to the error log file, or "" when there are no entries.
//   - An error if writing fails.
func (fm *FileManager) WriteErrorLog(entries []ErrorLogEntry) (string, error) {
	if len(entries) == 0 {
		return "", nil
	}

	now := fm.clock()
	logPath := filepath.Join(fm.OutputDir, fmt.Sprintf("error_log_%s.txt", now.Format("20060102_150405")))

	file, err := os.Create(logPath)
	if err != nil {
		return "", fmt.Errorf("failed to create error log: %w", err)
	}
	defer file.Close()

	writer := bufio.NewWriter(file)

	fmt.Fprintf(writer, "Statement Order Replay - Error Log\n"+
		"Generated: %s\n"+
		"Total Errors: %d\n"+
		"================================================================================\n\n",
		now.Format("2006-01-02 15:04:05"),
		len(entries))

	for i, entry := range entries {
		fmt.Fprintf(writer, "Error #%d\n"+
			"  Timestamp:      %s\n"+
			"  File:           %s\n"+
			"  Mode:           %s\n"+
			"  Transaction ID: %s\n",
			i+1,
			entry.Timestamp.Format("2006-01-02 15:04:05"),
			entry.FileName,
			entry.Mode,
			entry.TransactionID)

		if entry.SourceRow > 0 {
			fmt.Fprintf(writer, "  Row Number:     %d\n", entry.SourceRow)
		}
		if entry.Date != "" {
			fmt.Fprintf(writer, "  Date:           %s\n", entry.Date)
		}
		if entry.Amount != "" {
			fmt.Fprintf(writer, "  Amount:         %s\n", entry.Amount)
		}
		fmt.Fprintf(writer, "  Message:        %s\n\n", entry.ErrorMessage)
	}

	writer.WriteString("================================================================================\n" +
		"End of Error Log\n")

	if err := writer.Flush(); err != nil {
		return "", fmt.Errorf("failed to flush error log: %w", err)
	}

	return logPath, nil
}

// =============================================================================
// RUN SUMMARY
// =============================================================================

// RunSummary contains summary information about a replay run.
type RunSummary struct {
	StartTime time.Time
	EndTime   time.Time
	Mode      string
	DryRun    bool
	Files     []FileSummary
}

// FileSummary is the outcome of replaying one statement.
type FileSummary struct {
	InputFile   string
	ArchivePath string
	Error       string
	Total       int
	Processed   int
	Failed      int
	Skipped     int
}

// WriteSummaryLog writes a run summary to a log file in the output directory.
//
// RETURNS:
//   - The path to the summary file.
//   - An error if writing fails.
func (fm *FileManager) WriteSummaryLog(summary RunSummary) (string, error) {
	summaryPath := filepath.Join(fm.OutputDir,
		fmt.Sprintf("replay_summary_%s.txt", summary.StartTime.Format("20060102_150405")))

	file, err := os.Create(summaryPath)
	if err != nil {
		return "", fmt.Errorf("failed to create summary file: %w", err)
	}
	defer file.Close()

	if err := writeSummary(file, summary); err != nil {
		return "", fmt.Errorf("failed to write summary file: %w", err)
	}

	return summaryPath, nil
}

func writeSummary(w io.Writer, summary RunSummary) error {
	writer := bufio.NewWriter(w)

	var total, processed, failed, skipped int
	for _, f := range summary.Files {
		total += f.Total
		processed += f.Processed
		failed += f.Failed
		skipped += f.Skipped
	}

	fmt.Fprintf(writer, "Statement Order Replay - Run Summary\n"+
		"================================================================================\n\n"+
		"Run Information:\n"+
		"  Start Time:     %s\n"+
		"  End Time:       %s\n"+
		"  Duration:       %s\n"+
		"  Mode:           %s\n"+
		"  Dry Run:        %v\n\n"+
		"Statistics:\n"+
		"  Statements:     %d\n"+
		"  Transactions:   %d\n"+
		"  Processed:      %d\n"+
		"  Failed:         %d\n"+
		"  Not attempted:  %d\n\n",
		summary.StartTime.Format("2006-01-02 15:04:05"),
		summary.EndTime.Format("2006-01-02 15:04:05"),
		summary.EndTime.Sub(summary.StartTime).Round(time.Millisecond),
		summary.Mode,
		summary.DryRun,
		len(summary.Files),
		total,
		processed,
		failed,
		skipped)

	if len(summary.Files) > 0 {
		writer.WriteString("Statements:\n")
		writer.WriteString("--------------------------------------------------------------------------------\n")
		for _, f := range summary.Files {
			fmt.Fprintf(writer, "  File:         %s\n", f.InputFile)
			if f.Error != "" {
				fmt.Fprintf(writer, "  Error:        %s\n\n", f.Error)
				continue
			}
			fmt.Fprintf(writer, "  Transactions: %d (processed %d, failed %d)\n", f.Total, f.Processed, f.Failed)
			if f.ArchivePath != "" {
				fmt.Fprintf(writer, "  Archived to:  %s\n", f.ArchivePath)
			}
			writer.WriteString("\n")
		}
	}

	writer.WriteString("================================================================================\n" +
		"End of Summary\n")

	return writer.Flush()
}

// =============================================================================
// UTILITY FUNCTIONS
// =============================================================================

// copyFile copies a file from src to dst.
func copyFile(src, dst string) error {
	sourceFile, err := os.Open(src)
	if err != nil {
		return err
	}
	defer sourceFile.Close()

	destFile, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer destFile.Close()

	if _, err := io.Copy(destFile, sourceFile); err != nil {
		return err
	}

	return destFile.Sync()
}

// FileExists checks if a file exists.
func FileExists(path string) bool {
	_, err := os.Stat(path)
	return !os.IsNotExist(err)
}
