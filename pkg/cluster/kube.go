package cluster

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"

	appsv1 "k8s.io/api/apps/v1"
	corev1 "k8s.io/api/core/v1"
	k8serrors "k8s.io/apimachinery/pkg/api/errors"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/labels"
	k8stypes "k8s.io/apimachinery/pkg/types"
	"k8s.io/apimachinery/pkg/util/intstr"
	"k8s.io/client-go/kubernetes"
	"k8s.io/client-go/rest"
	"k8s.io/client-go/tools/clientcmd"

	"github.com/cutover/cutover/pkg/log"
)

// Pod waiting reasons that mark a candidate as explicitly failed
var fatalWaitingReasons = map[string]bool{
	"CrashLoopBackOff": true,
	"ImagePullBackOff": true,
	"ErrImagePull":     true,
}

// KubeCluster implements Interface against a Kubernetes control plane.
// Workloads are Deployments; the router is a Service whose spec.selector
// carries the environment labels.
type KubeCluster struct {
	client kubernetes.Interface
}

// NewKubeCluster builds a cluster client from the given kubeconfig path.
// An empty path tries in-cluster config first and then the default
// kubeconfig loading rules.
func NewKubeCluster(kubeconfig string) (*KubeCluster, error) {
	var (
		cfg *rest.Config
		err error
	)
	if kubeconfig != "" {
		cfg, err = clientcmd.BuildConfigFromFlags("", kubeconfig)
	} else {
		cfg, err = rest.InClusterConfig()
		if err != nil {
			cfg, err = clientcmd.NewNonInteractiveDeferredLoadingClientConfig(
				clientcmd.NewDefaultClientConfigLoadingRules(),
				&clientcmd.ConfigOverrides{},
			).ClientConfig()
		}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load cluster config: %w", err)
	}

	client, err := kubernetes.NewForConfig(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create cluster client: %w", err)
	}
	return &KubeCluster{client: client}, nil
}

// NewKubeClusterWithClient wraps an existing clientset (used by tests)
func NewKubeClusterWithClient(client kubernetes.Interface) *KubeCluster {
	return &KubeCluster{client: client}
}

// Apply creates or updates the Deployment for a manifest
func (k *KubeCluster) Apply(ctx context.Context, manifest Manifest) error {
	desired := deploymentFor(manifest)
	deployments := k.client.AppsV1().Deployments(manifest.Namespace)

	existing, err := deployments.Get(ctx, manifest.Name, metav1.GetOptions{})
	if k8serrors.IsNotFound(err) {
		_, err = deployments.Create(ctx, desired, metav1.CreateOptions{})
		if err != nil {
			return fmt.Errorf("failed to create %s/%s: %w", manifest.Namespace, manifest.Name, err)
		}
		logger := log.WithComponent("cluster")
		logger.Debug().
			Str("workload", manifest.Name).
			Str("namespace", manifest.Namespace).
			Msg("workload created")
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to get %s/%s: %w", manifest.Namespace, manifest.Name, err)
	}

	existing.Labels = desired.Labels
	existing.Spec = desired.Spec
	_, err = deployments.Update(ctx, existing, metav1.UpdateOptions{})
	if err != nil {
		return fmt.Errorf("failed to update %s/%s: %w", manifest.Namespace, manifest.Name, err)
	}
	logger := log.WithComponent("cluster")
	logger.Debug().
		Str("workload", manifest.Name).
		Str("namespace", manifest.Namespace).
		Msg("workload updated")
	return nil
}

func deploymentFor(manifest Manifest) *appsv1.Deployment {
	replicas := int32(manifest.Replicas)
	podLabels := make(map[string]string, len(manifest.Labels))
	for k, v := range manifest.Labels {
		podLabels[k] = v
	}

	return &appsv1.Deployment{
		ObjectMeta: metav1.ObjectMeta{
			Name:      manifest.Name,
			Namespace: manifest.Namespace,
			Labels:    manifest.Labels,
		},
		Spec: appsv1.DeploymentSpec{
			Replicas: &replicas,
			Selector: &metav1.LabelSelector{MatchLabels: podLabels},
			Template: corev1.PodTemplateSpec{
				ObjectMeta: metav1.ObjectMeta{Labels: podLabels},
				Spec: corev1.PodSpec{
					Containers: []corev1.Container{{
						Name:  manifest.Name,
						Image: manifest.Image,
						Ports: []corev1.ContainerPort{{ContainerPort: int32(manifest.Port)}},
						ReadinessProbe: &corev1.Probe{
							ProbeHandler: corev1.ProbeHandler{
								HTTPGet: &corev1.HTTPGetAction{
									Path: manifest.HealthPath,
									Port: intstr.FromInt32(int32(manifest.Port)),
								},
							},
						},
					}},
				},
			},
		},
	}
}

// GetReadiness reports per-Deployment readiness plus explicit pod failure
// states for the workloads matching selector
func (k *KubeCluster) GetReadiness(ctx context.Context, namespace string, selector map[string]string) (ReadinessStatus, error) {
	sel := labels.Set(selector).String()

	deployments, err := k.client.AppsV1().Deployments(namespace).List(ctx, metav1.ListOptions{LabelSelector: sel})
	if err != nil {
		return ReadinessStatus{}, fmt.Errorf("failed to list workloads: %w", err)
	}

	pods, err := k.client.CoreV1().Pods(namespace).List(ctx, metav1.ListOptions{LabelSelector: sel})
	if err != nil {
		return ReadinessStatus{}, fmt.Errorf("failed to list pods: %w", err)
	}

	failures := make(map[string][]string)
	for _, pod := range pods.Items {
		app := pod.Labels["app"]
		for _, cs := range pod.Status.ContainerStatuses {
			if cs.State.Waiting != nil && fatalWaitingReasons[cs.State.Waiting.Reason] {
				failures[app] = append(failures[app],
					fmt.Sprintf("pod %s: %s", pod.Name, cs.State.Waiting.Reason))
			}
		}
	}

	var status ReadinessStatus
	for _, dep := range deployments.Items {
		desired := 1
		if dep.Spec.Replicas != nil {
			desired = int(*dep.Spec.Replicas)
		}
		status.Services = append(status.Services, ServiceReadiness{
			Service:         dep.Name,
			ReadyReplicas:   int(dep.Status.ReadyReplicas),
			DesiredReplicas: desired,
			FailureReasons:  failures[dep.Name],
		})
	}
	sort.Slice(status.Services, func(i, j int) bool {
		return status.Services[i].Service < status.Services[j].Service
	})
	return status, nil
}

// GetSelector reads the router Service's selector labels
func (k *KubeCluster) GetSelector(ctx context.Context, router RouterRef) (map[string]string, error) {
	svc, err := k.client.CoreV1().Services(router.Namespace).Get(ctx, router.Name, metav1.GetOptions{})
	if err != nil {
		return nil, fmt.Errorf("failed to read router %s/%s: %w", router.Namespace, router.Name, err)
	}
	return svc.Spec.Selector, nil
}

// PatchSelector replaces the router selector with a single merge patch.
// Keys present on the router but absent from the new selector are removed
// in the same patch, so intermediate states are never observable.
func (k *KubeCluster) PatchSelector(ctx context.Context, router RouterRef, selector map[string]string) error {
	current, err := k.GetSelector(ctx, router)
	if err != nil {
		return err
	}

	merged := make(map[string]interface{}, len(selector)+len(current))
	for key := range current {
		if _, keep := selector[key]; !keep {
			merged[key] = nil
		}
	}
	for key, value := range selector {
		merged[key] = value
	}

	patch, err := json.Marshal(map[string]interface{}{
		"spec": map[string]interface{}{"selector": merged},
	})
	if err != nil {
		return fmt.Errorf("failed to encode selector patch: %w", err)
	}

	_, err = k.client.CoreV1().Services(router.Namespace).Patch(
		ctx, router.Name, k8stypes.MergePatchType, patch, metav1.PatchOptions{})
	if err != nil {
		return fmt.Errorf("failed to patch router %s/%s: %w", router.Namespace, router.Name, err)
	}
	return nil
}
