package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/securebackend/sbops/usecase/image"
)

// newCmdImage returns the parent command for container image operations.
func newCmdImage() *cobra.Command {
	c := &cobra.Command{
		Use:   "image",
		Short: "Build and push container images",
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	c.PersistentFlags().String("tag", "", "Image tag (default: configured tag)")
	c.PersistentFlags().Bool("for-frontend", false, "Target the frontend image instead of the backend image")
	c.AddCommand(newCmdImageBuild(), newCmdImagePush())
	return c
}

// imageTarget resolves the backend or frontend selected by the image flags.
func imageTarget(ctx context.Context, cmd *cobra.Command, u *image.UseCase) (image.Target, string, error) {
	t := image.Target{Tag: flagString(cmd, "tag")}
	if flagString(cmd, "for-frontend") == "true" {
		f, err := selectFrontend(ctx, cmd, u.Repos.Frontend)
		if err != nil {
			return t, "", err
		}
		t.FrontendID = f.ID
		return t, f.Name, nil
	}
	b, err := selectBackend(ctx, cmd, u.Repos.Backend)
	if err != nil {
		return t, "", err
	}
	t.BackendID = b.ID
	return t, b.Name, nil
}

func newCmdImageBuild() *cobra.Command {
	var noCache, push bool
	cmd := &cobra.Command{
		Use:   "build",
		Short: "Build the image from its context directory",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) (err error) {
			u, closeEngine, err := buildImageUseCase(cmd)
			if err != nil {
				return err
			}
			defer closeEngine()
			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Minute)
			defer cancel()
			t, name, err := imageTarget(ctx, cmd, u)
			if err != nil {
				return err
			}
			ctx, cleanup := withCmdRunLogger(ctx, "image.build", name)
			defer func() { cleanup(err) }()

			var ref string
			if push {
				out, err := u.BuildPush(ctx, &image.BuildPushInput{Target: t, NoCache: noCache})
				if err != nil {
					return err
				}
				ref = out.Reference
			} else {
				out, err := u.Build(ctx, &image.BuildInput{Target: t, NoCache: noCache})
				if err != nil {
					return err
				}
				ref = out.Reference
			}
			fmt.Fprintln(cmd.OutOrStdout(), ref)
			return nil
		},
	}
	cmd.Flags().BoolVar(&noCache, "no-cache", false, "Do not use the build cache")
	cmd.Flags().BoolVar(&push, "push", false, "Push the image after building it")
	return cmd
}

func newCmdImagePush() *cobra.Command {
	return &cobra.Command{
		Use:   "push",
		Short: "Push a previously built image to the registry",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) (err error) {
			u, closeEngine, err := buildImageUseCase(cmd)
			if err != nil {
				return err
			}
			defer closeEngine()
			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Minute)
			defer cancel()
			t, name, err := imageTarget(ctx, cmd, u)
			if err != nil {
				return err
			}
			ctx, cleanup := withCmdRunLogger(ctx, "image.push", name)
			defer func() { cleanup(err) }()

			out, err := u.Push(ctx, &image.PushInput{Target: t})
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), out.Reference)
			return nil
		},
	}
}
