package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"cadence/internal/api"
)

type documentArgs struct {
	clientID string
	stage    int
	slot     int
}

func parseDocumentArgs(args []string) (documentArgs, error) {
	stage, err := parseStageArg(args[1])
	if err != nil {
		return documentArgs{}, err
	}
	slot, err := parseSlotArg(args[2])
	if err != nil {
		return documentArgs{}, err
	}
	return documentArgs{clientID: args[0], stage: stage, slot: slot}, nil
}

func newSendCommand(cmdCtx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "send CLIENT_ID STAGE SLOT",
		Short: "Mark a document as sent to the client",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			target, err := parseDocumentArgs(args)
			if err != nil {
				return err
			}
			return cmdCtx.withProgram(func(ctx context.Context, env *programEnv) error {
				doc, err := env.service.SetDocumentStatus(ctx, target.clientID, target.stage, target.slot, "sent")
				if err != nil {
					return err
				}
				printDocumentLine(cmd, doc, "sent")
				return nil
			})
		},
	}
}

func newApproveCommand(cmdCtx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "approve CLIENT_ID STAGE SLOT",
		Short: "Approve a document",
		Long: "Approve a document. When all five documents of the stage are approved the stage " +
			"completes and the next stage unlocks automatically.",
		Args: cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			target, err := parseDocumentArgs(args)
			if err != nil {
				return err
			}
			return cmdCtx.withProgram(func(ctx context.Context, env *programEnv) error {
				doc, err := env.service.ApproveDocument(ctx, target.clientID, target.stage, target.slot)
				if err != nil {
					return err
				}
				printDocumentLine(cmd, doc, "approved")
				return nil
			})
		},
	}
}

func newReviseCommand(cmdCtx *commandContext) *cobra.Command {
	var notes string

	cmd := &cobra.Command{
		Use:   "revise CLIENT_ID STAGE SLOT",
		Short: "Request a revision of a document",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			target, err := parseDocumentArgs(args)
			if err != nil {
				return err
			}
			return cmdCtx.withProgram(func(ctx context.Context, env *programEnv) error {
				doc, err := env.service.RequestRevision(ctx, target.clientID, target.stage, target.slot, notes)
				if err != nil {
					return err
				}
				printDocumentLine(cmd, doc, "flagged for revision")
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&notes, "notes", "m", "", "Revision notes for the writer")
	return cmd
}

func newShowCommand(cmdCtx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "show CLIENT_ID STAGE SLOT",
		Short: "Print a document's current content",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			target, err := parseDocumentArgs(args)
			if err != nil {
				return err
			}
			return cmdCtx.withProgram(func(ctx context.Context, env *programEnv) error {
				doc, err := env.store.GetDocument(ctx, target.clientID, target.stage, target.slot)
				if err != nil {
					return err
				}
				if doc.StorageRef == "" {
					return fmt.Errorf("document %q has no generated content yet", doc.Name)
				}
				content, err := env.orchestrator.ReadContent(doc.StorageRef)
				if err != nil {
					return err
				}
				fmt.Fprint(cmd.OutOrStdout(), content)
				return nil
			})
		},
	}
}

func printDocumentLine(cmd *cobra.Command, doc *api.DocumentView, verb string) {
	fmt.Fprintf(cmd.OutOrStdout(), "%s (stage %d slot %d, version %d) %s\n",
		doc.Name, doc.Stage, doc.Slot, doc.Version, verb)
}
